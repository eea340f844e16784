package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-battle-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// AwardStore persists XP awards in Redis. The per-session award insert and
// the XP total increment run in one Lua script, so the store never holds a
// partial award: either the complete payload landed and the total moved, or
// nothing was written and a retry starts clean.
type AwardStore struct {
	client *redis.Client
}

// recordAwardScript returns {payload, inserted}. A stored payload always wins
// over the incoming award; only the first call per session moves the total.
var recordAwardScript = redis.NewScript(`
local stored = redis.call('GET', KEYS[1])
if stored then
  return {stored, 0}
end
local earned = tonumber(ARGV[2])
local total = redis.call('INCRBY', KEYS[2], earned)
local payload = cjson.encode({
  sessionId = ARGV[1],
  xpEarned  = earned,
  oldXP     = total - earned,
  newXP     = total,
})
redis.call('SET', KEYS[1], payload)
return {payload, 1}
`)

func NewAwardStore(client *redis.Client) *AwardStore {
	return &AwardStore{client: client}
}

func (s *AwardStore) RecordAward(ctx context.Context, userID, sessionID string, xpEarned int) (domain.SubmissionResult, bool, error) {
	res, err := recordAwardScript.Run(ctx, s.client,
		[]string{s.awardKey(sessionID), s.totalKey(userID)},
		sessionID, xpEarned).Result()
	if err != nil {
		return domain.SubmissionResult{}, false, fmt.Errorf("award script: %w", err)
	}

	reply, ok := res.([]interface{})
	if !ok || len(reply) != 2 {
		return domain.SubmissionResult{}, false, fmt.Errorf("award script: unexpected reply %v", res)
	}
	payload, _ := reply[0].(string)
	inserted, _ := reply[1].(int64)

	var result domain.SubmissionResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return domain.SubmissionResult{}, false, fmt.Errorf("award decode: %w", err)
	}
	return result, inserted == 1, nil
}

// UserXP returns the accumulated total for a user.
func (s *AwardStore) UserXP(ctx context.Context, userID string) (int, error) {
	v, err := s.client.Get(ctx, s.totalKey(userID)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (s *AwardStore) awardKey(sessionID string) string {
	return "battle:award:" + sessionID
}

func (s *AwardStore) totalKey(userID string) string {
	return "battle:xp:" + userID
}
