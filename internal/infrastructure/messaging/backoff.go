package messaging

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// BackoffConfig 失败重投的指数退避
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{Initial: time.Second, Max: time.Minute, Multiplier: 2}
}

// Delay 第 failures 次失败后距下一次投递的等待时长，不加抖动
func (c BackoffConfig) Delay(failures int) time.Duration {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.Initial
	eb.MaxInterval = c.Max
	eb.RandomizationFactor = 0
	eb.Multiplier = max(c.Multiplier, 1)
	eb.Reset()

	var d time.Duration
	for range failures + 1 {
		d = eb.NextBackOff()
	}
	return d
}
