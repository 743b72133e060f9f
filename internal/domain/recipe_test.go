package domain

import (
	"encoding/json"
	"testing"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Price
		wantErr bool
	}{
		{name: "two decimals", input: "5.25", want: 525},
		{name: "one decimal", input: "5.5", want: 550},
		{name: "integer", input: "12", want: 1200},
		{name: "leading dot", input: ".50", want: 50},
		{name: "zero", input: "0.00", want: 0},
		{name: "negative", input: "-3.10", want: -310},
		{name: "whitespace trimmed", input: " 5.25 ", want: 525},
		{name: "too many decimals", input: "5.255", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "not a number", input: "abc", wantErr: true},
		{name: "garbage fraction", input: "5.x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d cents, got %d", tt.want, got)
			}
		})
	}
}

func TestPriceString(t *testing.T) {
	tests := []struct {
		price Price
		want  string
	}{
		{525, "5.25"},
		{550, "5.50"},
		{1200, "12.00"},
		{5, "0.05"},
		{0, "0.00"},
		{-310, "-3.10"},
	}

	for _, tt := range tests {
		if got := tt.price.String(); got != tt.want {
			t.Errorf("Price(%d).String() = %q, want %q", tt.price, got, tt.want)
		}
	}
}

func TestPriceJSON(t *testing.T) {
	// Marshals to a quoted decimal string
	data, err := json.Marshal(Price(525))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `"5.25"` {
		t.Errorf("expected \"5.25\", got %s", data)
	}

	// Accepts string, number, and integer inputs
	for _, input := range []string{`"5.25"`, `5.25`, `"5.3"`} {
		var p Price
		if err := json.Unmarshal([]byte(input), &p); err != nil {
			t.Errorf("unmarshal %s: unexpected error: %v", input, err)
		}
	}

	var p Price
	if err := json.Unmarshal([]byte(`5`), &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != 500 {
		t.Errorf("expected 500 cents, got %d", p)
	}

	if err := json.Unmarshal([]byte(`"5.255"`), &p); err == nil {
		t.Error("expected error for three decimal places")
	}
}

func TestRecipeValidate(t *testing.T) {
	tests := []struct {
		name    string
		recipe  Recipe
		wantErr error
	}{
		{
			name:   "valid",
			recipe: Recipe{Title: "Chocolate cheesecake", TimeMinutes: 30, Price: 500},
		},
		{
			name:    "empty title",
			recipe:  Recipe{Title: "", TimeMinutes: 30, Price: 500},
			wantErr: ErrInvalidRecipeTitle,
		},
		{
			name:    "negative time",
			recipe:  Recipe{Title: "Soup", TimeMinutes: -1, Price: 500},
			wantErr: ErrInvalidRecipeTime,
		},
		{
			name:    "negative price",
			recipe:  Recipe{Title: "Soup", TimeMinutes: 5, Price: -1},
			wantErr: ErrInvalidRecipePrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.recipe.Validate()
			if err != tt.wantErr {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
