package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"gameshow-quiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const bankKey = "quiz:bank"

// BankLoader fetches question content from a backing store (file, Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context) (domain.QuestionBank, error)
}

// BankRepository caches the question bank as JSON in Redis and falls back to
// the loader on a miss, so multiple resets (or restarts) reuse the cached
// content until the TTL expires.
type BankRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewBankRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) Bank(ctx context.Context) (domain.QuestionBank, error) {
	if bank, ok := r.cachedBank(ctx); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(bankKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if bank, ok := r.cachedBank(ctx); ok {
			return bank, nil
		}

		bank, err := r.loader.LoadBank(ctx)
		if err != nil {
			return domain.QuestionBank{}, err
		}

		// A non-positive TTL disables caching entirely; with ttl 0 the
		// Set would persist the key forever instead.
		if ttl := r.ttlWithJitter(); ttl > 0 {
			if data, err := json.Marshal(bank); err == nil {
				// Cache write is best-effort; a failure just means the
				// next load goes to the backing store again.
				_ = r.client.Set(ctx, bankKey, data, ttl).Err()
			}
		}
		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

func (r *BankRepository) cachedBank(ctx context.Context) (domain.QuestionBank, bool) {
	data, err := r.client.Get(ctx, bankKey).Bytes()
	if err != nil {
		return domain.QuestionBank{}, false
	}
	var bank domain.QuestionBank
	if err := json.Unmarshal(data, &bank); err != nil {
		return domain.QuestionBank{}, false
	}
	if bank.Validate() != nil {
		return domain.QuestionBank{}, false
	}
	return bank, true
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
