package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFileStore(t *testing.T) {
	Convey("Given a file store", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "analytics.json")
		s := NewFileStore(path, nil)

		Convey("When the store holds {\"abcd.png\": 3} and abcd.png is requested", func() {
			So(os.WriteFile(path, []byte(`{"abcd.png": 3}`), 0o644), ShouldBeNil)
			n, err := s.Increment(ctx, "abcd.png")

			Convey("Then the file becomes {\"abcd.png\":4}", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, int64(4))
				data, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, `{"abcd.png":4}`)
			})
		})

		Convey("When the file does not exist yet", func() {
			snap, err := s.Snapshot(ctx)

			Convey("Then the store is empty and nothing is written", func() {
				So(err, ShouldBeNil)
				So(snap, ShouldBeEmpty)
				_, statErr := os.Stat(path)
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})

		Convey("When the file holds an empty PHP array", func() {
			So(os.WriteFile(path, []byte("[]"), 0o644), ShouldBeNil)
			n, err := s.Increment(ctx, "wxyz.jpg")

			Convey("Then it is treated as an empty mapping", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, int64(1))
			})
		})

		Convey("When the file is corrupt", func() {
			So(os.WriteFile(path, []byte(`{"abcd.png": 3`), 0o644), ShouldBeNil)
			n, err := s.Increment(ctx, "abcd.png")

			Convey("Then counting restarts from an empty mapping", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, int64(1))
				snap, _ := s.Snapshot(ctx)
				So(snap, ShouldResemble, map[string]int64{"abcd.png": 1})
			})
		})

		Convey("When the parent directory is missing", func() {
			nested := NewFileStore(filepath.Join(t.TempDir(), "a", "b", "analytics.json"), nil)
			_, err := nested.Increment(ctx, "abcd.png")

			Convey("Then it is created", func() {
				So(err, ShouldBeNil)
				_, statErr := os.Stat(nested.Path())
				So(statErr, ShouldBeNil)
			})
		})

		Convey("When the file cannot be written", func() {
			dir := filepath.Join(t.TempDir(), "ro")
			So(os.Mkdir(dir, 0o500), ShouldBeNil)
			ro := NewFileStore(filepath.Join(dir, "analytics.json"), nil)
			_, err := ro.Increment(ctx, "abcd.png")

			Convey("Then ErrPersist is returned", func() {
				if os.Geteuid() == 0 {
					// root ignores directory permissions
					So(err, ShouldBeNil)
					return
				}
				So(errors.Is(err, ErrPersist), ShouldBeTrue)
			})
		})

		Convey("When the store is closed", func() {
			So(s.Close(), ShouldBeNil)
			_, err := s.Increment(ctx, "abcd.png")

			Convey("Then ErrClosed is returned", func() {
				So(err, ShouldEqual, ErrClosed)
			})
		})

		Convey("When two stores share one file", func() {
			other := NewFileStore(path, nil)
			_, _ = s.Increment(ctx, "abcd.png")
			_, _ = other.Increment(ctx, "abcd.png")

			Convey("Then each whole-file rewrite sees the other's update", func() {
				n, err := s.Get(ctx, "abcd.png")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, int64(2))
			})
		})
	})
}
