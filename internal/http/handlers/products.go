package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charles588/dropship/internal/http/middleware"
	"github.com/charles588/dropship/internal/http/validation"
	"github.com/charles588/dropship/internal/modules/products"
	"github.com/charles588/dropship/internal/shared/apperr"
	"github.com/charles588/dropship/internal/shared/money"
	"github.com/charles588/dropship/internal/storage"
)

const maxImageBytes = 5 << 20

type ProductsHandler struct {
	Logger *slog.Logger
	Repo   *products.Repo
	Files  storage.Storage
}

func NewProductsHandler(logger *slog.Logger, repo *products.Repo, files storage.Storage) *ProductsHandler {
	return &ProductsHandler{Logger: logger, Repo: repo, Files: files}
}

type productInput struct {
	Title        string  `json:"title" binding:"required,max=255"`
	Price        float64 `json:"price" binding:"required,gt=0"`
	SupplierCost float64 `json:"supplier_cost" binding:"gte=0"`
	Unit         string  `json:"unit" binding:"required,oneof=minor major"`
	SupplierSKU  string  `json:"supplier_sku" binding:"omitempty,max=64"`
}

func (in productInput) cents() (price, cost int64, err error) {
	if price, err = money.FromTagged(in.Price, in.Unit); err != nil {
		return 0, 0, err
	}
	cost, err = money.FromTagged(in.SupplierCost, in.Unit)
	return price, cost, err
}

// GET /api/admin/products
func (h *ProductsHandler) List(c *gin.Context) {
	items, err := h.Repo.List(c.Request.Context())
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": items})
}

// GET /api/admin/products/:id
func (h *ProductsHandler) Get(c *gin.Context) {
	p, err := h.Repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, products.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Product not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, p)
}

// POST /api/admin/products
func (h *ProductsHandler) Create(c *gin.Context) {
	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request.", validation.FromBindError(err, &in)))
		return
	}
	price, cost, err := in.cents()
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr(err.Error(), nil))
		return
	}

	p, err := h.Repo.Create(c.Request.Context(), in.Title, price, cost, in.SupplierSKU)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusCreated, p)
}

// PUT /api/admin/products/:id
func (h *ProductsHandler) Update(c *gin.Context) {
	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request.", validation.FromBindError(err, &in)))
		return
	}
	price, cost, err := in.cents()
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr(err.Error(), nil))
		return
	}

	id := c.Param("id")
	if err := h.Repo.Update(c.Request.Context(), id, in.Title, price, cost, in.SupplierSKU); err != nil {
		if errors.Is(err, products.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Product not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// POST /api/admin/products/:id/image
func (h *ProductsHandler) UploadImage(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.Repo.Get(c.Request.Context(), id); err != nil {
		if errors.Is(err, products.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Product not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr("Image file is required.", nil))
		return
	}
	if fh.Size > maxImageBytes {
		middleware.Fail(c, apperr.InvalidErr("Image is too large.", nil))
		return
	}

	f, err := fh.Open()
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	defer f.Close()

	res, err := h.Files.Put(c.Request.Context(), f, storage.PutInput{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	if err := h.Repo.SetImage(c.Request.Context(), id, res.Key, res.URL); err != nil {
		// Orphaned object; clean it up so the bucket does not accumulate them.
		if derr := h.Files.Delete(c.Request.Context(), res.Key); derr != nil {
			h.Logger.WarnContext(c.Request.Context(), "orphaned image not cleaned up",
				"key", res.Key, "err", derr)
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"image_url": res.URL})
}

// DELETE /api/admin/products/:id
func (h *ProductsHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	p, err := h.Repo.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, products.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Product not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	if err := h.Repo.Delete(c.Request.Context(), id); err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	if p.ImageKey != "" {
		if err := h.Files.Delete(c.Request.Context(), p.ImageKey); err != nil {
			h.Logger.WarnContext(c.Request.Context(), "product image not deleted",
				"key", p.ImageKey, "err", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
