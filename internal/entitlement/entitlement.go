// Package entitlement decides what protected content a requester may see.
// Presentation layers call it instead of inspecting order status themselves.
package entitlement

import (
	"digimart/internal/domain"
	"time"

	"github.com/google/uuid"
)

type State string

const (
	// Locked: payment not verified. Only the admin contact is exposed.
	Locked State = "LOCKED"
	// Unlocked: payment verified and the product record is present.
	Unlocked State = "UNLOCKED"
	// Unavailable: payment verified but the product has since been removed.
	Unavailable State = "UNAVAILABLE"
)

type View struct {
	OrderNumber  string              `json:"orderNumber"`
	ProductName  string              `json:"productName"`
	Amount       float64             `json:"amount"`
	Status       domain.OrderStatus  `json:"status"`
	State        State               `json:"state"`
	Unlocked     bool                `json:"unlocked"`
	SourceFiles  []domain.SourceFile `json:"sourceFiles"`
	DownloadURL  string              `json:"downloadUrl,omitempty"`
	DemoLink     string              `json:"demoLink,omitempty"`
	AdminContact string              `json:"adminContact,omitempty"`
}

// Resolve derives the entitlement view for order. product may be nil when the
// catalog record no longer exists. A product whose id does not match the
// order's snapshot is treated as absent.
func Resolve(order domain.Order, product *domain.Product, adminContact string) View {
	v := View{
		OrderNumber: order.OrderNumber,
		ProductName: order.ProductName,
		Amount:      order.Amount,
		Status:      order.Status,
		SourceFiles: []domain.SourceFile{},
	}

	if order.Status != domain.OrderPaid {
		v.State = Locked
		v.AdminContact = adminContact
		return v
	}

	v.Unlocked = true
	if product == nil || product.ID != order.ProductID {
		v.State = Unavailable
		return v
	}

	v.State = Unlocked
	v.SourceFiles = append(v.SourceFiles, product.SourceCode...)
	v.DownloadURL = product.FileURL
	v.DemoLink = product.DemoLink
	return v
}

// Listing is the public catalog shape of a product: everything except the
// protected download reference and source files.
type Listing struct {
	ID            uuid.UUID            `json:"id"`
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Images        []string             `json:"images"`
	VideoURL      string               `json:"videoUrl,omitempty"`
	Price         float64              `json:"price"`
	DiscountPrice *float64             `json:"discountPrice,omitempty"`
	Category      domain.Category      `json:"category"`
	Tags          []string             `json:"tags"`
	DemoLink      string               `json:"demoLink,omitempty"`
	Rating        float64              `json:"rating"`
	ReviewsCount  int                  `json:"reviewsCount"`
	Status        domain.ProductStatus `json:"status"`
	SourceCount   int                  `json:"sourceFileCount"`
	CreatedAt     time.Time            `json:"createdAt"`
}

func PublicListing(p domain.Product) Listing {
	cp := p.Clone()
	return Listing{
		ID:            cp.ID,
		Title:         cp.Title,
		Description:   cp.Description,
		Images:        cp.Images,
		VideoURL:      cp.VideoURL,
		Price:         cp.Price,
		DiscountPrice: cp.DiscountPrice,
		Category:      cp.Category,
		Tags:          cp.Tags,
		DemoLink:      cp.DemoLink,
		Rating:        cp.Rating,
		ReviewsCount:  cp.ReviewsCount,
		Status:        cp.Status,
		SourceCount:   len(cp.SourceCode),
		CreatedAt:     cp.CreatedAt,
	}
}

func PublicListings(products []domain.Product) []Listing {
	out := make([]Listing, 0, len(products))
	for _, p := range products {
		out = append(out, PublicListing(p))
	}
	return out
}

// Tracking is what anyone holding an order number may see: the order's
// progress without the buyer's contact or account.
type Tracking struct {
	OrderNumber   string             `json:"orderNumber"`
	ProductName   string             `json:"productName"`
	Amount        float64            `json:"amount"`
	PaymentMethod string             `json:"paymentMethod"`
	Status        domain.OrderStatus `json:"status"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

func Track(o domain.Order) Tracking {
	return Tracking{
		OrderNumber:   o.OrderNumber,
		ProductName:   o.ProductName,
		Amount:        o.Amount,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}
