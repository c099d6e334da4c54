package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Translator performs the machine-translation call for one question text.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// TranslationCache caches translated question text with TTL to avoid
// repeated machine-translation calls. Entries are keyed by survey id,
// question index, and target language; grading never consults this.
type TranslationCache struct {
	translator Translator
	ttl        time.Duration
	clock      func() time.Time
	sf         singleflight.Group
	rnd        *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedTranslation
}

type cachedTranslation struct {
	text      string
	expiresAt time.Time
}

func NewTranslationCache(translator Translator, ttl time.Duration) *TranslationCache {
	return &TranslationCache{
		translator: translator,
		ttl:        ttl,
		clock:      time.Now,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:      make(map[string]cachedTranslation),
	}
}

func (c *TranslationCache) Translate(ctx context.Context, surveyID string, questionIndex int, targetLang, text string) (string, error) {
	key := translationKey(surveyID, questionIndex, targetLang)
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.text, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.text, nil
		}
		c.mu.RUnlock()

		translated, err := c.translator.Translate(ctx, text, targetLang)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.cache[key] = cachedTranslation{
			text:      translated,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return translated, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *TranslationCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func translationKey(surveyID string, questionIndex int, targetLang string) string {
	return fmt.Sprintf("%s:%d:%s", surveyID, questionIndex, targetLang)
}

// StaticTranslator maps "<lang>:<text>" to a fixed translation; useful in
// tests and demos.
type StaticTranslator struct {
	translations map[string]string
}

func NewStaticTranslator(translations map[string]string) *StaticTranslator {
	return &StaticTranslator{translations: translations}
}

func (t *StaticTranslator) Translate(_ context.Context, text, targetLang string) (string, error) {
	if translated, ok := t.translations[targetLang+":"+text]; ok {
		return translated, nil
	}
	return "", fmt.Errorf("no translation for %q into %s", text, targetLang)
}
