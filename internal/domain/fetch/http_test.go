package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/upshot/internal/domain/fetch"
	. "github.com/smartystreets/goconvey/convey"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func TestHTTPFetcher_FetchOnce(t *testing.T) {
	Convey("Given a remote serving screenshots", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/shots/abcd.png", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBytes)
		})
		mux.HandleFunc("/shots/wxyz.jpg", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/jpeg; charset=binary")
			_, _ = w.Write([]byte("\xff\xd8\xff\xe0jpeg"))
		})
		mux.HandleFunc("/shots/untyped.png", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write(pngBytes)
		})
		mux.HandleFunc("/shots/page.png", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>moved</html>"))
		})
		mux.HandleFunc("/shots/slow.png", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		fetcher := fetch.NewHTTPFetcher(fetch.WithHTTPClient(srv.Client()), fetch.WithMaxBytes(1024))
		ctx := context.Background()

		Convey("When the image exists", func() {
			res := fetcher.FetchOnce(ctx, srv.URL+"/shots/abcd.png")

			Convey("Then the bytes and declared type are returned", func() {
				So(res.OK(), ShouldBeTrue)
				So(res.Err(), ShouldBeNil)
				So(res.Image().ContentType, ShouldEqual, "image/png")
				So(res.Image().Body, ShouldResemble, pngBytes)
			})
		})

		Convey("When the declared type has parameters", func() {
			res := fetcher.FetchOnce(ctx, srv.URL+"/shots/wxyz.jpg")

			Convey("Then only the media type is kept", func() {
				So(res.OK(), ShouldBeTrue)
				So(res.Image().ContentType, ShouldEqual, "image/jpeg")
			})
		})

		Convey("When the remote does not declare an image type", func() {
			res := fetcher.FetchOnce(ctx, srv.URL+"/shots/untyped.png")

			Convey("Then the type is sniffed from the body", func() {
				So(res.OK(), ShouldBeTrue)
				So(res.Image().ContentType, ShouldEqual, "image/png")
			})
		})

		Convey("When the remote returns something that is not an image", func() {
			res := fetcher.FetchOnce(ctx, srv.URL+"/shots/page.png")

			Convey("Then the fetch fails", func() {
				So(res.OK(), ShouldBeFalse)
				So(errors.Is(res.Err(), fetch.ErrNotImage), ShouldBeTrue)
			})
		})

		Convey("When the image is missing", func() {
			res := fetcher.FetchOnce(ctx, srv.URL+"/shots/nope.png")

			Convey("Then the status is reported", func() {
				So(res.OK(), ShouldBeFalse)
				So(errors.Is(res.Err(), fetch.ErrStatus), ShouldBeTrue)
			})
		})

		Convey("When the body exceeds the size limit", func() {
			small := fetch.NewHTTPFetcher(fetch.WithHTTPClient(srv.Client()), fetch.WithMaxBytes(4))
			res := small.FetchOnce(ctx, srv.URL+"/shots/abcd.png")

			Convey("Then the fetch fails", func() {
				So(errors.Is(res.Err(), fetch.ErrTooLarge), ShouldBeTrue)
			})
		})

		Convey("When the attempt times out", func() {
			quick := fetch.NewHTTPFetcher(fetch.WithHTTPClient(srv.Client()), fetch.WithTimeout(50*time.Millisecond))
			res := quick.FetchOnce(ctx, srv.URL+"/shots/slow.png")

			Convey("Then the remote is reported unreachable", func() {
				So(errors.Is(res.Err(), fetch.ErrUnreachable), ShouldBeTrue)
			})
		})

		Convey("When the remote cannot be reached", func() {
			res := fetcher.FetchOnce(ctx, "http://127.0.0.1:1/abcd.png")

			Convey("Then the remote is reported unreachable", func() {
				So(errors.Is(res.Err(), fetch.ErrUnreachable), ShouldBeTrue)
			})
		})
	})
}
