package redis

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Translator performs the machine-translation call for one question text.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// TranslationCache caches translated question text in Redis (one hash per
// survey and language, field per question index) and falls back to the
// translator on cache miss. Stored as:
// HSET survey:{surveyID}:translations:{lang} {questionIndex} {text}
type TranslationCache struct {
	client     *redis.Client
	translator Translator
	ttl        time.Duration
	sf         singleflight.Group
	rnd        *rand.Rand
}

func NewTranslationCache(client *redis.Client, translator Translator, ttl time.Duration) *TranslationCache {
	return &TranslationCache{
		client:     client,
		translator: translator,
		ttl:        ttl,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *TranslationCache) Translate(ctx context.Context, surveyID string, questionIndex int, targetLang, text string) (string, error) {
	key := c.hashKey(surveyID, targetLang)
	field := strconv.Itoa(questionIndex)

	cached, err := c.client.HGet(ctx, key, field).Result()
	if err == nil && cached != "" {
		return cached, nil
	}

	result, err, _ := c.sf.Do(key+":"+field, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := c.client.HGet(ctx, key, field).Result()
		if err == nil && cached != "" {
			return cached, nil
		}

		translated, err := c.translator.Translate(ctx, text, targetLang)
		if err != nil {
			return "", err
		}

		pipe := c.client.Pipeline()
		pipe.HSet(ctx, key, field, translated)
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return translated, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *TranslationCache) hashKey(surveyID, targetLang string) string {
	return fmt.Sprintf("survey:%s:translations:%s", surveyID, targetLang)
}

func (c *TranslationCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
