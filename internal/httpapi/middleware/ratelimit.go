package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/dispensary/internal/common"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimit limits requests per client IP. rate uses the limiter format,
// e.g. "30-M". A nil redis client keeps counters in process memory.
func RateLimit(rate string, rdb *redis.Client, log *logrus.Logger) (gin.HandlerFunc, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.New()
	}

	var store limiter.Store
	if rdb != nil {
		store, err = sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "dispensary:ratelimit"})
		if err != nil {
			log.WithError(err).Warn("redis rate limit store unavailable, falling back to memory")
			store = nil
		}
	}
	if store == nil {
		store = memory.NewStore()
	}

	return mgin.NewMiddleware(limiter.New(store, r),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			common.Fail(c, http.StatusTooManyRequests, 42901, "too many requests, slow down")
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// limiter failures never block chat traffic
			log.WithError(err).Warn("rate limiter error")
			c.Next()
		}),
	), nil
}
