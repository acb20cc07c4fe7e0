package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rpggio/carwizard/internal/domain/vehicle"
	"github.com/rpggio/carwizard/internal/validation"
)

// ErrInvalidCatalog is returned when a catalog file fails validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// File is the on-disk catalog format.
//
//	vehicles:
//	  - id: skoda-kodiaq
//	    make: Skoda
//	    model: Kodiaq
//	    price: 1000000
//	    body_type: SUV
//	    fuel_type: Petrol
//	    tags: [family-focused, safety]
//	    quality_score: 80
type File struct {
	Vehicles []Entry `yaml:"vehicles"`
}

// Entry is one vehicle as written in a catalog file.
type Entry struct {
	ID           string   `yaml:"id" validate:"required"`
	Make         string   `yaml:"make"`
	Model        string   `yaml:"model"`
	Price        int64    `yaml:"price" validate:"gte=0"`
	BodyType     string   `yaml:"body_type" validate:"required"`
	FuelType     string   `yaml:"fuel_type" validate:"required"`
	Tags         []string `yaml:"tags" validate:"dive,required"`
	QualityScore float64  `yaml:"quality_score" validate:"gte=0,lte=100"`
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) ([]vehicle.Vehicle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return Decode(bytes.NewReader(data))
}

// Decode parses and validates a YAML catalog. Vehicle order is preserved.
func Decode(r io.Reader) ([]vehicle.Vehicle, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	seen := make(map[string]int, len(file.Vehicles))
	vehicles := make([]vehicle.Vehicle, 0, len(file.Vehicles))
	for i, e := range file.Vehicles {
		if err := validation.ValidateStruct(e); err != nil {
			return nil, fmt.Errorf("%w: vehicle %d: %w", ErrInvalidCatalog, i, err)
		}
		if prev, ok := seen[e.ID]; ok {
			return nil, fmt.Errorf("%w: vehicle %d repeats id %q of vehicle %d", ErrInvalidCatalog, i, e.ID, prev)
		}
		seen[e.ID] = i

		tags := e.Tags
		if tags == nil {
			tags = []string{}
		}
		vehicles = append(vehicles, vehicle.Vehicle{
			ID:           e.ID,
			Make:         e.Make,
			Model:        e.Model,
			Price:        e.Price,
			BodyType:     e.BodyType,
			FuelType:     e.FuelType,
			Tags:         tags,
			QualityScore: e.QualityScore,
		})
	}
	return vehicles, nil
}
