package domain

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategorySoftware  Category = "Software"
	CategoryTemplates Category = "Templates"
	CategoryEbooks    Category = "Ebooks"
	CategoryCourses   Category = "Courses"
	CategoryLogos     Category = "Logo Design"
)

func (c Category) Valid() bool {
	switch c {
	case CategorySoftware, CategoryTemplates, CategoryEbooks, CategoryCourses, CategoryLogos:
		return true
	}
	return false
}

type ProductStatus string

const (
	ProductActive   ProductStatus = "Active"
	ProductInactive ProductStatus = "Inactive"
	ProductDraft    ProductStatus = "Draft"
)

func (s ProductStatus) Valid() bool {
	return s == ProductActive || s == ProductInactive || s == ProductDraft
}

type Language string

const (
	LangHTML       Language = "html"
	LangCSS        Language = "css"
	LangJavaScript Language = "javascript"
	LangReact      Language = "react"
	LangPython     Language = "python"
	LangText       Language = "text"
)

func (l Language) Valid() bool {
	switch l {
	case LangHTML, LangCSS, LangJavaScript, LangReact, LangPython, LangText:
		return true
	}
	return false
}

// SourceFile is a piece of protected content embedded in a product.
type SourceFile struct {
	Filename string   `json:"filename"`
	Language Language `json:"language"`
	Content  string   `json:"content"`
}

const (
	DefaultRating       = 5.0
	DefaultReviewsCount = 1
)

type Product struct {
	ID            uuid.UUID     `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Images        []string      `json:"images"`
	VideoURL      string        `json:"videoUrl,omitempty"`
	Price         float64       `json:"price"`
	DiscountPrice *float64      `json:"discountPrice,omitempty"`
	Category      Category      `json:"category"`
	FileURL       string        `json:"fileUrl"`
	SourceCode    []SourceFile  `json:"sourceCode"`
	Tags          []string      `json:"tags"`
	DemoLink      string        `json:"demoLink,omitempty"`
	Rating        float64       `json:"rating"`
	ReviewsCount  int           `json:"reviewsCount"`
	Status        ProductStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	Version       int64         `json:"-"`
}

// ProductSpec holds the caller-supplied fields of a new product.
type ProductSpec struct {
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Images        []string      `json:"images"`
	VideoURL      string        `json:"videoUrl"`
	Price         float64       `json:"price"`
	DiscountPrice *float64      `json:"discountPrice"`
	Category      Category      `json:"category"`
	FileURL       string        `json:"fileUrl"`
	SourceCode    []SourceFile  `json:"sourceCode"`
	Tags          []string      `json:"tags"`
	DemoLink      string        `json:"demoLink"`
	Status        ProductStatus `json:"status"`
}

// NewProduct assigns identity, default rating and timestamps, then validates.
func NewProduct(spec ProductSpec, now time.Time) (*Product, error) {
	p := &Product{
		ID:            uuid.New(),
		Title:         strings.TrimSpace(spec.Title),
		Description:   spec.Description,
		Images:        cloneStrings(spec.Images),
		VideoURL:      spec.VideoURL,
		Price:         spec.Price,
		DiscountPrice: cloneFloat(spec.DiscountPrice),
		Category:      spec.Category,
		FileURL:       spec.FileURL,
		SourceCode:    cloneFiles(spec.SourceCode),
		Tags:          normalizeTags(spec.Tags),
		DemoLink:      spec.DemoLink,
		Rating:        DefaultRating,
		ReviewsCount:  DefaultReviewsCount,
		Status:        spec.Status,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
	}
	if p.Status == "" {
		p.Status = ProductActive
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the product invariants.
func (p *Product) Validate() error {
	if p.Title == "" {
		return invalid("title", "is required")
	}
	if !(p.Price > 0) {
		return invalid("price", "must be positive")
	}
	if !wholeCents(p.Price) {
		return invalid("price", "must have at most 2 decimal places")
	}
	if p.DiscountPrice != nil {
		d := *p.DiscountPrice
		if !wholeCents(d) {
			return invalid("discountPrice", "must have at most 2 decimal places")
		}
		if !(d > 0) || d >= p.Price {
			return invalid("discountPrice", "must be positive and below price")
		}
	}
	if !p.Category.Valid() {
		return invalid("category", "is not a known category")
	}
	if !p.Status.Valid() {
		return invalid("status", "must be Active, Inactive or Draft")
	}
	for _, f := range p.SourceCode {
		if strings.TrimSpace(f.Filename) == "" {
			return invalid("sourceCode.filename", "is required")
		}
		if !f.Language.Valid() {
			return invalid("sourceCode.language", "is not a known language")
		}
	}
	return nil
}

// wholeCents reports whether v is representable as NUMERIC(12,2) without
// rounding, so stored and in-memory amounts agree.
func wholeCents(v float64) bool {
	c := v * 100
	return math.Abs(c-math.Round(c)) < 1e-6 && math.Abs(c) < 1e12
}

// EffectivePrice is what a buyer is charged: the discount price when set.
func (p Product) EffectivePrice() float64 {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

// Clone returns a deep copy so callers cannot alias stored slices.
func (p Product) Clone() Product {
	cp := p
	cp.Images = cloneStrings(p.Images)
	cp.SourceCode = cloneFiles(p.SourceCode)
	cp.Tags = cloneStrings(p.Tags)
	cp.DiscountPrice = cloneFloat(p.DiscountPrice)
	return cp
}

// ProductPatch is a partial update. Nil fields are left untouched.
type ProductPatch struct {
	Title         *string        `json:"title"`
	Description   *string        `json:"description"`
	Images        []string       `json:"images"`
	VideoURL      *string        `json:"videoUrl"`
	Price         *float64       `json:"price"`
	DiscountPrice *float64       `json:"discountPrice"`
	ClearDiscount bool           `json:"clearDiscount"`
	Category      *Category      `json:"category"`
	FileURL       *string        `json:"fileUrl"`
	SourceCode    []SourceFile   `json:"sourceCode"`
	Tags          []string       `json:"tags"`
	DemoLink      *string        `json:"demoLink"`
	Status        *ProductStatus `json:"status"`
}

// Apply merges the patch into p and re-validates. p is left unchanged on error.
func (p *Product) Apply(patch ProductPatch, now time.Time) error {
	next := p.Clone()
	if patch.Title != nil {
		next.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.Images != nil {
		next.Images = cloneStrings(patch.Images)
	}
	if patch.VideoURL != nil {
		next.VideoURL = *patch.VideoURL
	}
	if patch.Price != nil {
		next.Price = *patch.Price
	}
	if patch.ClearDiscount {
		next.DiscountPrice = nil
	} else if patch.DiscountPrice != nil {
		next.DiscountPrice = cloneFloat(patch.DiscountPrice)
	}
	if patch.Category != nil {
		next.Category = *patch.Category
	}
	if patch.FileURL != nil {
		next.FileURL = *patch.FileURL
	}
	if patch.SourceCode != nil {
		next.SourceCode = cloneFiles(patch.SourceCode)
	}
	if patch.Tags != nil {
		next.Tags = normalizeTags(patch.Tags)
	}
	if patch.DemoLink != nil {
		next.DemoLink = *patch.DemoLink
	}
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if err := next.Validate(); err != nil {
		return err
	}
	next.UpdatedAt = now
	*p = next
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneFiles(f []SourceFile) []SourceFile {
	if f == nil {
		return []SourceFile{}
	}
	out := make([]SourceFile, len(f))
	copy(out, f)
	return out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
