package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/okian/upshot/internal/domain/imagekey"
	"github.com/okian/upshot/pkg/logger"
	"github.com/okian/upshot/pkg/metrics"
)

// Client-visible bodies of the proxy's failure responses.
const (
	msgInvalidImage  = "Not a valid image."
	msgImageNotFound = "Image not found."
)

// ImageHandler is the counting fetch proxy.
type ImageHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewImageHandler creates a new image handler.
func NewImageHandler(deps Dependencies, l logger.Logger) *ImageHandler {
	return &ImageHandler{deps: deps, logger: l}
}

// HandleImage handles GET /{file} and GET /screenshot.php?file=.
//
// A valid key is counted before the fetch is attempted, so the count moves
// whether or not the image is eventually found.
func (h *ImageHandler) HandleImage(w http.ResponseWriter, r *http.Request) {
	const op = "api.image"
	ctx := r.Context()

	raw, ok := mux.Vars(r)["file"]
	if !ok {
		raw = r.URL.Query().Get("file")
	}

	key, err := imagekey.Parse(raw)
	if err != nil {
		metrics.RecordInvalidKey()
		h.logger.Debug(ctx, "rejected key",
			logger.String("file", raw),
			logger.Error(WrapKind(op, ErrInvalidKey, err)),
		)
		writeText(w, http.StatusBadRequest, msgInvalidImage)
		return
	}

	if count, err := h.deps.Record(ctx, key); err != nil {
		metrics.RecordErrorByComponent("api", "record_failed")
		h.logger.Warn(ctx, "hit not recorded",
			logger.String("key", key.String()),
			logger.Error(WrapKind(op, ErrRecord, err)),
		)
	} else {
		h.logger.Debug(ctx, "hit recorded", logger.String("key", key.String()), logger.Int64("count", count))
	}

	res := h.deps.Fetch(ctx, key)
	if !res.OK() {
		metrics.RecordImageNotFound()
		h.logger.Info(ctx, "image not found",
			logger.String("key", key.String()),
			logger.Int("attempts", res.Attempts()),
			logger.Error(WrapKind(op, ErrNotFound, res.Err())),
		)
		writeText(w, http.StatusNotFound, msgImageNotFound)
		return
	}

	img := res.Image()
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img.Body); err != nil {
		h.logger.Debug(ctx, "client went away", logger.String("key", key.String()), logger.Error(err))
		return
	}
	metrics.RecordImageServed(len(img.Body))
}
