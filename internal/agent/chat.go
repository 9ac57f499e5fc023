package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const transcriptTTL = 24 * time.Hour

func nowUTC() time.Time {
	return time.Now().UTC()
}

// TranscriptStore keeps incident-analyst conversations in Redis, one list
// per (user, session). Transcripts expire after a day of inactivity.
type TranscriptStore struct {
	client *redis.Client
}

func NewTranscriptStore(client *redis.Client) *TranscriptStore {
	return &TranscriptStore{client: client}
}

func transcriptKey(userID int, sessionID string) string {
	return fmt.Sprintf("incident:%d:%s", userID, sessionID)
}

func (s *TranscriptStore) Append(ctx context.Context, userID int, sessionID string, turn Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}

	key := transcriptKey(userID, sessionID)
	if err := s.client.RPush(ctx, key, string(data)).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, transcriptTTL).Err()
}

func (s *TranscriptStore) Load(ctx context.Context, userID int, sessionID string) ([]Turn, error) {
	items, err := s.client.LRange(ctx, transcriptKey(userID, sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	turns := make([]Turn, 0, len(items))
	for _, item := range items {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *TranscriptStore) Clear(ctx context.Context, userID int, sessionID string) error {
	return s.client.Del(ctx, transcriptKey(userID, sessionID)).Err()
}
