package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Match(t *testing.T) {
	r := Record{"name": "Item", "module": "Stock", "istable": 0, "description": ""}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "eq match", filter: Eq("module", "Stock"), want: true},
		{name: "eq mismatch", filter: Eq("module", "Selling"), want: false},
		{name: "eq numeric", filter: Eq("istable", 0), want: true},
		{name: "in match", filter: In("module", "Selling", "Stock"), want: true},
		{name: "in strings", filter: InStrings("module", []string{"Stock"}), want: true},
		{name: "in mismatch", filter: In("module", "Selling"), want: false},
		{name: "in empty", filter: In("module"), want: false},
		{name: "is set", filter: IsSet("module"), want: true},
		{name: "is set empty string", filter: IsSet("description"), want: false},
		{name: "is set absent", filter: IsSet("absent"), want: false},
		{name: "not set absent", filter: NotSet("absent"), want: true},
		{name: "not set empty", filter: NotSet("description"), want: true},
		{name: "not set present", filter: NotSet("module"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(r))
		})
	}
}

func TestMatchAll(t *testing.T) {
	r := Record{"name": "Item", "module": "Stock"}

	assert.True(t, MatchAll(r, nil))
	assert.True(t, MatchAll(r, []Filter{Eq("module", "Stock"), IsSet("name")}))
	assert.False(t, MatchAll(r, []Filter{Eq("module", "Stock"), NotSet("name")}))
}

func TestFilter_String(t *testing.T) {
	assert.Equal(t, "module = Stock", Eq("module", "Stock").String())
	assert.Equal(t, "app_name in [a, b]", In("app_name", "a", "b").String())
	assert.Equal(t, "module is set", IsSet("module").String())
	assert.Equal(t, "module not set", NotSet("module").String())
}
