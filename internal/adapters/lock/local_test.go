package lock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/cuerank/internal/adapters/lock"
	"github.com/okian/cuerank/internal/domain/errs"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLocal(t *testing.T) {
	Convey("Given a local locker", t, func() {
		l := lock.NewLocal()
		ctx := context.Background()

		Convey("When one holder has a key", func() {
			release, err := l.Acquire(ctx, "club:c1")
			So(err, ShouldBeNil)

			Convey("Then a different key is independent", func() {
				other, err := l.Acquire(ctx, "global")
				So(err, ShouldBeNil)
				So(other(ctx), ShouldBeNil)
			})

			Convey("Then a second holder times out", func() {
				waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
				defer cancel()
				_, err := l.Acquire(waitCtx, "club:c1")
				So(errors.Is(err, lock.ErrLockTimeout), ShouldBeTrue)
				So(errs.IsRetryable(err), ShouldBeTrue)
			})

			Convey("Then releasing twice reports the second call", func() {
				So(release(ctx), ShouldBeNil)
				So(errors.Is(release(ctx), lock.ErrLockNotHeld), ShouldBeTrue)
				So(l.Len(), ShouldEqual, 0)
			})
		})

		Convey("When many goroutines contend for one key", func() {
			var inside, maxInside, total int32
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					release, err := l.Acquire(ctx, "scope")
					if err != nil {
						return
					}
					n := atomic.AddInt32(&inside, 1)
					for {
						m := atomic.LoadInt32(&maxInside)
						if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
							break
						}
					}
					time.Sleep(time.Millisecond)
					atomic.AddInt32(&inside, -1)
					atomic.AddInt32(&total, 1)
					_ = release(ctx)
				}()
			}
			wg.Wait()

			Convey("Then they ran one at a time", func() {
				So(atomic.LoadInt32(&total), ShouldEqual, 16)
				So(atomic.LoadInt32(&maxInside), ShouldEqual, 1)
				So(l.Len(), ShouldEqual, 0)
			})
		})
	})
}
