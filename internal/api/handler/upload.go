package handler

import (
	"errors"
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

const videoField = "video"

// openVideo returns the uploaded clip from the multipart field "video".
// The caller closes it.
func openVideo(c *fiber.Ctx) (multipart.File, error) {
	header, err := c.FormFile(videoField)
	if err != nil {
		return nil, domain.ErrNoVideoSupplied.WithError(err)
	}
	if header.Size == 0 {
		return nil, domain.ErrNoVideoSupplied
	}

	file, err := header.Open()
	if err != nil {
		return nil, domain.ErrNoVideoSupplied.WithError(err)
	}
	return file, nil
}

func employeeID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrBadRequest.WithMessage("invalid employee id")
	}
	return id, nil
}

var errEmptyBody = errors.New("empty body")
