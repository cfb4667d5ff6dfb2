package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/foodhall-backend/api/middleware"
	"github.com/angelmondragon/foodhall-backend/api/responses"
	"github.com/angelmondragon/foodhall-backend/api/validators"
	"github.com/angelmondragon/foodhall-backend/internal/catalog"
	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	"github.com/angelmondragon/foodhall-backend/pkg/types"
)

type SellerResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type MenuItemResponse struct {
	ID          int64     `json:"id"`
	SellerID    int64     `json:"seller_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Price       string    `json:"price"`
	IsAvailable bool      `json:"is_available"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type createMenuItemRequest struct {
	Name     string          `json:"name" validate:"required,max=120"`
	Category string          `json:"category" validate:"max=60"`
	Price    decimal.Decimal `json:"price"`
}

type updateMenuItemRequest struct {
	Name        *string          `json:"name" validate:"omitempty,max=120"`
	Category    *string          `json:"category" validate:"omitempty,max=60"`
	Price       *decimal.Decimal `json:"price"`
	IsAvailable *bool            `json:"is_available"`
}

func newMenuItemResponse(item models.MenuItem) MenuItemResponse {
	return MenuItemResponse{
		ID:          item.ID,
		SellerID:    item.SellerID,
		Name:        item.Name,
		Category:    item.Category,
		Price:       types.FormatMoney(item.Price),
		IsAvailable: item.IsAvailable,
		UpdatedAt:   item.UpdatedAt,
	}
}

func newMenuResponse(items []models.MenuItem) []MenuItemResponse {
	out := make([]MenuItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, newMenuItemResponse(item))
	}
	return out
}

// ListSellers returns every active seller.
func ListSellers(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellers, err := svc.ListSellers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]SellerResponse, 0, len(sellers))
		for _, seller := range sellers {
			out = append(out, SellerResponse{ID: seller.ID, Name: seller.Name})
		}
		responses.WriteSuccess(w, out)
	}
}

// SellerMenu returns the available items of one seller.
func SellerMenu(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := validators.ParsePathID(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListMenu(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newMenuResponse(items))
	}
}

// OwnMenu lists the calling seller's items, unavailable ones included.
func OwnMenu(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := sellerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListOwnMenu(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newMenuResponse(items))
	}
}

func CreateMenuItem(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := sellerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createMenuItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateMenuItem(r.Context(), sellerID, catalog.CreateMenuItemInput{
			Name:     payload.Name,
			Category: payload.Category,
			Price:    payload.Price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newMenuItemResponse(*item))
	}
}

// UpdateMenuItem patches price, naming or availability of the caller's item.
func UpdateMenuItem(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := sellerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParsePathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateMenuItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateMenuItem(r.Context(), sellerID, itemID, catalog.UpdateMenuItemInput{
			Name:        payload.Name,
			Category:    payload.Category,
			Price:       payload.Price,
			IsAvailable: payload.IsAvailable,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newMenuItemResponse(*item))
	}
}

func sellerIDFromContext(r *http.Request) (int64, error) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok || identity.SellerID == nil {
		return 0, pkgerrors.New(pkgerrors.CodeForbidden, "seller context missing")
	}
	return *identity.SellerID, nil
}
