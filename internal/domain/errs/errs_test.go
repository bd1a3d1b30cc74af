package errs_test

import (
	"errors"
	"io"
	"testing"

	"github.com/okian/cuerank/internal/domain/errs"
	. "github.com/smartystreets/goconvey/convey"
)

func TestErrorKinds(t *testing.T) {
	Convey("Given errors built with the kind helpers", t, func() {
		Convey("When a kind is attached to an operation", func() {
			err := errs.NewKind("challenge.resolve", errs.ErrNotFound)

			Convey("Then errors.Is matches the kind", func() {
				So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
				So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeFalse)
				So(err.Error(), ShouldEqual, "challenge.resolve: not found")
			})
		})

		Convey("When a cause is wrapped with a kind", func() {
			err := errs.WrapKind("repository.replace", errs.ErrUnavailable, io.ErrUnexpectedEOF)

			Convey("Then both the kind and the cause are reachable", func() {
				So(errors.Is(err, errs.ErrUnavailable), ShouldBeTrue)
				So(errors.Is(err, io.ErrUnexpectedEOF), ShouldBeTrue)
				So(errs.IsRetryable(err), ShouldBeTrue)
				So(errs.KindOf(err), ShouldEqual, errs.ErrUnavailable)
			})
		})

		Convey("When a kinded error is wrapped again", func() {
			inner := errs.Newf("placement.allocate", errs.ErrInvalidArgument, "placement %d", 0)
			err := errs.Wrap("app.allocate", inner)

			Convey("Then the original kind is preserved", func() {
				So(errs.KindOf(err), ShouldEqual, errs.ErrInvalidArgument)
				So(errs.IsRetryable(err), ShouldBeFalse)
			})
		})

		Convey("When wrapping nil", func() {
			So(errs.Wrap("noop", nil), ShouldBeNil)
			So(errs.KindOf(nil), ShouldBeNil)
		})
	})
}
