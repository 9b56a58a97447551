package model_test

import (
	"testing"

	"github.com/okian/upshot/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTotalHits(t *testing.T) {
	Convey("Given counter store rows", t, func() {
		rows := []model.HitCount{{Key: "abcd.png", Count: 3}, {Key: "wxyz.jpg", Count: 9}}

		Convey("Then TotalHits sums the counts", func() {
			So(model.TotalHits(rows), ShouldEqual, int64(12))
		})

		Convey("Then an empty store has no hits", func() {
			So(model.TotalHits(nil), ShouldEqual, int64(0))
		})
	})
}
