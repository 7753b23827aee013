package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

/*
=======================
  PARSER
=======================
*/

// parseMultipartProductRequest reads a product form. Only the fields present
// in the form are set; an "image" file is saved and its URL recorded.
func parseMultipartProductRequest(c *gin.Context, uploads *Uploads) (ProductUpdateRequest, error) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		return ProductUpdateRequest{}, err
	}

	var input ProductUpdateRequest

	for field, dst := range map[string]**string{
		"name":        &input.Name,
		"description": &input.Description,
		"categoryId":  &input.CategoryID,
	} {
		if value, ok := c.GetPostForm(field); ok {
			value = strings.TrimSpace(value)
			*dst = &value
		}
	}

	if value, ok := c.GetPostForm("price"); ok {
		parsed, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return ProductUpdateRequest{}, errors.New("price is invalid")
		}
		input.Price = &parsed
	}

	for field, dst := range map[string]**bool{
		"isActive":   &input.IsActive,
		"isFeatured": &input.IsFeatured,
	} {
		values := c.PostFormArray(field)
		if len(values) == 0 {
			continue
		}
		// checkbox + hidden input pairs send several values; the last wins
		parsed, err := parseBoolValue(values[len(values)-1])
		if err != nil {
			return ProductUpdateRequest{}, errors.New(field + " is invalid")
		}
		*dst = &parsed
	}

	if ids, ok := c.GetPostFormArray("extrasGroupIds"); ok {
		input.ExtrasGroupIDs = &ids
	}

	file, err := c.FormFile("image")
	switch {
	case err == nil:
		imageURL, err := uploads.SaveImage(file, "products")
		if err != nil {
			return ProductUpdateRequest{}, err
		}
		input.ImageURL = &imageURL
		input.uploaded = true
	case !errors.Is(err, http.ErrMissingFile):
		return ProductUpdateRequest{}, err
	}

	return input, nil
}

// bindProductRequest accepts either JSON or a multipart form.
func bindProductRequest(c *gin.Context, uploads *Uploads) (ProductUpdateRequest, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return parseMultipartProductRequest(c, uploads)
	}
	var req ProductUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return ProductUpdateRequest{}, errors.New(bindingMessage(err))
	}
	return req, nil
}

/*
=======================
  IMAGE UPLOAD
=======================
*/

// UploadImage stores a standalone image (banner, logo) and returns its URL.
func UploadImage(uploads *Uploads) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/uploads"
		defer handlePanic(c, route)

		file, err := c.FormFile("image")
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "image file is required")
			return
		}
		folder := strings.TrimSpace(c.DefaultPostForm("folder", "products"))

		url, err := uploads.SaveImage(file, folder)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		c.JSON(http.StatusCreated, gin.H{"url": url})
	}
}

/*
=======================
  HELPERS
=======================
*/

func parseBoolValue(value string) (bool, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "on" {
		return true, nil
	}
	return strconv.ParseBool(value)
}
