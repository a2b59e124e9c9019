package qec

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRateLimiter(t *testing.T) {
	Convey("Given a rate limiter with a burst of two", t, func() {
		limiter := NewRateLimiter(2, 50*time.Millisecond)

		Convey("It should allow the burst and then limit", func() {
			So(limiter.Limit(), ShouldBeFalse)
			So(limiter.Limit(), ShouldBeFalse)
			So(limiter.Limit(), ShouldBeTrue)
		})

		Convey("It should refill after the interval", func() {
			limiter.Limit()
			limiter.Limit()
			time.Sleep(60 * time.Millisecond)
			So(limiter.Limit(), ShouldBeFalse)
			So(limiter.tokens, ShouldEqual, 0)
		})

		Convey("It should never exceed its capacity", func() {
			time.Sleep(200 * time.Millisecond)
			So(limiter.Limit(), ShouldBeFalse)
			So(limiter.tokens, ShouldEqual, 1)
		})

		Convey("Wait should block until a token is free", func() {
			limiter.Limit()
			limiter.Limit()

			start := time.Now()
			So(limiter.Wait(context.Background()), ShouldBeNil)
			So(time.Since(start), ShouldBeGreaterThanOrEqualTo, 40*time.Millisecond)
		})

		Convey("Wait should give up when the context ends", func() {
			limiter.Limit()
			limiter.Limit()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			So(errors.Is(limiter.Wait(ctx), context.Canceled), ShouldBeTrue)
		})
	})
}
