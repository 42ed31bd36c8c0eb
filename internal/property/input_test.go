package property

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		input   func() Input
		partial bool
		fields  []string
	}{
		{name: "Valid create", input: validInput},
		{
			name:   "Empty create",
			input:  func() Input { return Input{} },
			fields: []string{"title", "description", "address", "city", "state", "zip_code", "price", "property_type"},
		},
		{name: "Empty update", input: func() Input { return Input{} }, partial: true},
		{
			name: "Too long title",
			input: func() Input {
				in := validInput()
				in.Title = ptr(strings.Repeat("t", 256))
				return in
			},
			fields: []string{"title"},
		},
		{
			name: "Unknown property type and status",
			input: func() Input {
				in := validInput()
				in.PropertyType = ptr("castle")
				in.Status = ptr("gone")
				return in
			},
			fields: []string{"property_type", "status"},
		},
		{
			name: "Negative counts",
			input: func() Input {
				return Input{Bedrooms: ptr(-1), Bathrooms: ptr(-2), SquareFeet: ptr(-3.5)}
			},
			partial: true,
			fields:  []string{"bedrooms", "bathrooms", "square_feet"},
		},
		{
			name: "Image URLs",
			input: func() Input {
				return Input{Images: &[]string{"https://cdn.example.com/1.jpg", "not a url"}}
			},
			partial: true,
			fields:  []string{"images.1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.input()
			err := in.Validate(tt.partial)

			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Len(t, verr.Errors, len(tt.fields))
			for _, field := range tt.fields {
				assert.Contains(t, verr.Errors, field)
			}
		})
	}
}
