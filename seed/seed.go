// Package seed bundles the static product dataset used when neither the
// durable store nor the remote endpoint can supply a collection.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"productcatalog/domain"
)

//go:embed products.json
var raw []byte

var dataset = mustDecode(raw)

func mustDecode(b []byte) []domain.Product {
	var list []domain.Product
	if err := json.Unmarshal(b, &list); err != nil {
		panic(fmt.Sprintf("seed: embedded dataset is invalid: %v", err))
	}
	return list
}

// Products returns a fresh deep copy of the dataset on every call.
func Products() []domain.Product {
	return domain.CloneProducts(dataset)
}

// Len returns the dataset size.
func Len() int { return len(dataset) }
