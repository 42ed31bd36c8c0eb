package property

import (
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cuongbtq/property-be/internal/api/domain"
	"github.com/cuongbtq/property-be/internal/api/model"
)

// Input carries property fields from a create or update request.
// Nil fields were not supplied.
type Input struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	Address      *string   `json:"address"`
	City         *string   `json:"city"`
	State        *string   `json:"state"`
	ZipCode      *string   `json:"zip_code"`
	Country      *string   `json:"country"`
	Price        *float64  `json:"price"`
	Bedrooms     *int      `json:"bedrooms"`
	Bathrooms    *int      `json:"bathrooms"`
	SquareFeet   *float64  `json:"square_feet"`
	PropertyType *string   `json:"property_type"`
	Status       *string   `json:"status"`
	Features     *[]string `json:"features"`
	Images       *[]string `json:"images"`
	IsFeatured   *bool     `json:"is_featured"`
}

// ValidationError lists the messages for every invalid field
type ValidationError struct {
	Errors map[string][]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Errors == nil {
		e.Errors = make(map[string][]string)
	}
	e.Errors[field] = append(e.Errors[field], msg)
}

type stringRule struct {
	field    string
	value    *string
	max      int
	required string
}

// Validate checks the input. With partial set, required fields may be omitted.
func (in *Input) Validate(partial bool) error {
	verr := &ValidationError{}

	rules := []stringRule{
		{field: "title", value: in.Title, max: 255, required: "Property title is required."},
		{field: "description", value: in.Description, max: 1000, required: "Property description is required."},
		{field: "address", value: in.Address, max: 255, required: "Property address is required."},
		{field: "city", value: in.City, max: 100, required: "City is required."},
		{field: "state", value: in.State, max: 100, required: "State is required."},
		{field: "zip_code", value: in.ZipCode, max: 20, required: "ZIP code is required."},
		{field: "country", value: in.Country, max: 100},
	}
	for _, r := range rules {
		switch {
		case r.value == nil || strings.TrimSpace(*r.value) == "":
			if r.required != "" && (!partial || r.value != nil) {
				verr.add(r.field, r.required)
			}
		case utf8.RuneCountInString(*r.value) > r.max:
			verr.add(r.field, fmt.Sprintf("The %s may not be greater than %d characters.", strings.ReplaceAll(r.field, "_", " "), r.max))
		}
	}

	if in.Price == nil {
		if !partial {
			verr.add("price", "Property price is required.")
		}
	} else if *in.Price < 0 {
		verr.add("price", "Price cannot be negative.")
	}

	if in.Bedrooms != nil && *in.Bedrooms < 0 {
		verr.add("bedrooms", "The bedrooms must be at least 0.")
	}
	if in.Bathrooms != nil && *in.Bathrooms < 0 {
		verr.add("bathrooms", "The bathrooms must be at least 0.")
	}
	if in.SquareFeet != nil && *in.SquareFeet < 0 {
		verr.add("square_feet", "The square feet must be at least 0.")
	}

	if in.PropertyType == nil {
		if !partial {
			verr.add("property_type", "Property type is required.")
		}
	} else if !slices.Contains(domain.PropertyTypes, *in.PropertyType) {
		verr.add("property_type", "Invalid property type selected.")
	}

	if in.Status != nil && !slices.Contains(domain.PropertyStatuses, *in.Status) {
		verr.add("status", "The selected status is invalid.")
	}

	if in.Images != nil {
		for i, image := range *in.Images {
			if !isURL(image) {
				verr.add(fmt.Sprintf("images.%d", i), "The image must be a valid URL.")
			}
		}
	}

	if len(verr.Errors) > 0 {
		return verr
	}
	return nil
}

func isURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// apply copies every supplied field onto p
func (in *Input) apply(p *model.Property) {
	setString(&p.Title, in.Title)
	setString(&p.Description, in.Description)
	setString(&p.Address, in.Address)
	setString(&p.City, in.City)
	setString(&p.State, in.State)
	setString(&p.ZipCode, in.ZipCode)
	setString(&p.Country, in.Country)
	setString(&p.PropertyType, in.PropertyType)
	setString(&p.Status, in.Status)

	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Bedrooms != nil {
		p.Bedrooms = in.Bedrooms
	}
	if in.Bathrooms != nil {
		p.Bathrooms = in.Bathrooms
	}
	if in.SquareFeet != nil {
		p.SquareFeet = in.SquareFeet
	}
	if in.Features != nil {
		p.Features = model.StringList(*in.Features)
	}
	if in.Images != nil {
		p.Images = model.StringList(*in.Images)
	}
	if in.IsFeatured != nil {
		p.IsFeatured = *in.IsFeatured
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
