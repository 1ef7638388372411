package workflow

import (
	"embed"
	"fmt"

	json "github.com/goccy/go-json"
)

//go:embed data/*.json
var catalogFS embed.FS

// Product is one searchable catalog product
type Product struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category"`
	Color       string  `json:"color"`
	Material    string  `json:"material"`
	Price       float64 `json:"price"`
	Rating      float64 `json:"rating"`
	Reviews     int     `json:"reviews"`
	InStock     bool    `json:"inStock"`
	Description string  `json:"description"`
}

// BlogMetrics holds engagement counters of a blog post
type BlogMetrics struct {
	Views           int `json:"views"`
	Likes           int `json:"likes"`
	ReadTimeMinutes int `json:"readTimeMinutes"`
}

// RecommendationData holds precomputed ranking signals
type RecommendationData struct {
	Sentiment float64 `json:"sentiment"`
}

// Blog is one searchable blog post
type Blog struct {
	ID                 string             `json:"id"`
	Title              string             `json:"title"`
	Author             string             `json:"author"`
	Category           string             `json:"category"`
	Tags               []string           `json:"tags"`
	DifficultyLevel    string             `json:"difficulty_level"`
	Metrics            BlogMetrics        `json:"metrics"`
	RecommendationData RecommendationData `json:"recommendation_data"`
}

// Score is the ranking signal: views weighted by sentiment
func (b Blog) Score() float64 {
	return float64(b.Metrics.Views) * b.RecommendationData.Sentiment
}

// LoadProducts returns the embedded product catalog
func LoadProducts() ([]Product, error) {
	var products []Product
	if err := loadCatalog("data/products.json", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// LoadBlogs returns the embedded blog catalog
func LoadBlogs() ([]Blog, error) {
	var blogs []Blog
	if err := loadCatalog("data/blogs.json", &blogs); err != nil {
		return nil, err
	}
	return blogs, nil
}

func loadCatalog(name string, out any) error {
	data, err := catalogFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
