package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Brownie44l1/letters-api/internal/imageio"
	"github.com/Brownie44l1/letters-api/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// PredictFromImage accepts either a multipart upload in the "image" field or
// a JSON body {"image": "<base64 or data URL>", "invert": bool}.
func (h *Handler) PredictFromImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes)

	var (
		raw    []byte
		invert bool
		err    error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		raw, invert, err = readUpload(c)
	} else {
		raw, invert, err = readEncoded(c)
	}
	if err != nil {
		writeErr(c, http.StatusBadRequest, err.Error())
		return
	}

	img, format, err := imageio.Decode(raw, h.opts.MaxImageSide)
	if errors.Is(err, imageio.ErrTooLarge) {
		writeErr(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeErr(c, http.StatusBadRequest, "Invalid image format. Supported: JPEG, PNG, GIF, WebP")
		return
	}

	log.Debug().
		Str("format", format).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Bool("invert", invert).
		Msg("image received")

	result, err := h.recognize(c.Request.Context(), imageio.Pixels(img, invert))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func readUpload(c *gin.Context) ([]byte, bool, error) {
	header, err := c.FormFile("image")
	if err != nil {
		return nil, false, errors.New("No image file provided. Use 'image' as the form field name")
	}
	file, err := header.Open()
	if err != nil {
		return nil, false, errors.New("Failed to read upload")
	}
	defer file.Close()

	log.Debug().Str("filename", header.Filename).Int64("size", header.Size).Msg("upload received")

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, false, errors.New("Failed to read upload")
	}
	invert, _ := strconv.ParseBool(c.PostForm("invert"))
	return raw, invert, nil
}

func readEncoded(c *gin.Context) ([]byte, bool, error) {
	var req model.ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, false, errors.New("Invalid JSON")
	}
	if req.Image == "" {
		return nil, false, errors.New("No image provided")
	}
	raw, err := imageio.DecodeDataURL(req.Image)
	if err != nil {
		return nil, false, errors.New("Invalid base64 image")
	}
	return raw, req.Invert, nil
}
