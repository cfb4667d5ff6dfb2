package catalog

import (
	"context"
	"fmt"

	"github.com/angelmondragon/foodhall-backend/pkg/db/models"
)

// Seed loads sellers and their menus into an empty store. Ids on the input
// rows only link items to sellers; the store assigns the persisted ids.
// A store that already lists sellers is left untouched.
func Seed(ctx context.Context, store Store, sellers []models.Seller, items []models.MenuItem) (int, error) {
	existing, err := store.ListSellers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sellers: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	sellerIDs := make(map[int64]int64, len(sellers))
	for _, seller := range sellers {
		fixtureID := seller.ID
		seller.ID = 0
		if err := store.CreateSeller(ctx, &seller); err != nil {
			return 0, fmt.Errorf("create seller %q: %w", seller.Name, err)
		}
		sellerIDs[fixtureID] = seller.ID
	}

	created := 0
	for _, item := range items {
		sellerID, ok := sellerIDs[item.SellerID]
		if !ok {
			return created, fmt.Errorf("menu item %q references unknown seller %d", item.Name, item.SellerID)
		}
		item.ID = 0
		item.SellerID = sellerID
		if err := store.CreateMenuItem(ctx, &item); err != nil {
			return created, fmt.Errorf("create menu item %q: %w", item.Name, err)
		}
		created++
	}
	return created, nil
}
