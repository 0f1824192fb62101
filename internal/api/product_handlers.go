package api

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/vaidashi/storefront-api/internal/models"
	"github.com/vaidashi/storefront-api/internal/service"
)

const maxUploadSize = 10 << 20

var productFields = []string{"product_name", "description", "price", "stock_quantity"}

// parseProductForm reads a multipart (or JSON) product submission. The
// returned closer releases any opened image files.
func parseProductForm(w http.ResponseWriter, r *http.Request) (service.ProductForm, func(), error) {
	noop := func() {}

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") &&
		!strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		form, err := parseProductJSON(w, r)
		return form, noop, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && err != http.ErrNotMultipart {
		return service.ProductForm{}, noop, err
	}

	values := map[string]*string{}
	for _, field := range productFields {
		if _, present := r.Form[field]; present {
			v := r.FormValue(field)
			values[field] = &v
		}
	}

	form := service.ProductForm{
		Name:          values["product_name"],
		Description:   values["description"],
		Price:         values["price"],
		StockQuantity: values["stock_quantity"],
	}

	if r.MultipartForm == nil {
		return form, noop, nil
	}

	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	for slot := 0; slot < models.ImageSlots; slot++ {
		headers := r.MultipartForm.File[fmt.Sprintf("image%d", slot+1)]
		if len(headers) == 0 {
			continue
		}

		f, err := headers[0].Open()
		if err != nil {
			closeAll()
			return service.ProductForm{}, noop, err
		}
		files = append(files, f)

		form.Images = append(form.Images, service.ImageUpload{
			Slot:        slot,
			Filename:    headers[0].Filename,
			ContentType: headers[0].Header.Get("Content-Type"),
			Body:        f,
		})
	}

	return form, closeAll, nil
}

func parseProductJSON(w http.ResponseWriter, r *http.Request) (service.ProductForm, error) {
	var body map[string]json.RawMessage
	if err := decodeJSON(w, r, &body); err != nil {
		return service.ProductForm{}, err
	}

	values := map[string]*string{}
	for _, field := range productFields {
		raw, present := body[field]
		if !present || string(raw) == "null" {
			continue
		}

		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			// numbers are kept verbatim so the service parses them exactly
			v = string(raw)
		}
		values[field] = &v
	}

	return service.ProductForm{
		Name:          values["product_name"],
		Description:   values["description"],
		Price:         values["price"],
		StockQuantity: values["stock_quantity"],
	}, nil
}

// getProductsHandler returns the whole catalog
func (s *Server) getProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := s.services.Products.ListProducts(r.Context())
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, products)
}

// createProductHandler adds a product
func (s *Server) createProductHandler(w http.ResponseWriter, r *http.Request) {
	form, release, err := parseProductForm(w, r)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer release()

	product, err := s.services.Products.CreateProduct(r.Context(), form)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusCreated, product)
}

// getProductByIDHandler returns a product by ID
func (s *Server) getProductByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.respondWithError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := s.services.Products.GetProduct(r.Context(), id)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, product)
}

// updateProductHandler applies a partial update
func (s *Server) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.respondWithError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	form, release, err := parseProductForm(w, r)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer release()

	product, err := s.services.Products.UpdateProduct(r.Context(), id, form)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, product)
}

// deleteProductHandler deletes a product
func (s *Server) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.respondWithError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	if err := s.services.Products.DeleteProduct(r.Context(), id); err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

// uploadHandler stores a single file sent in the "file" field
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	ref, err := s.services.Products.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, map[string]string{
		"message":    "File uploaded successfully",
		"url":        ref,
		"public_url": s.services.Products.ImageURL(ref),
	})
}
