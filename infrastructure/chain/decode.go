package chain

import (
	"fmt"
	"math/big"

	"optio-backend/domain/core/entities"
	"optio-backend/domain/core/valueobjects"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// convert is abi.ConvertType with the panic on mismatch turned into an error
func convert[T any](v interface{}) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected type %T", v)
		}
	}()
	return *abi.ConvertType(v, new(T)).(*T), nil
}

// decodeNexusBatch converts the (authors, contents, nexts) tuple of
// getFullNexusBatch. The three arrays are parallel.
func decodeNexusBatch(out []interface{}) ([]entities.Nexus, error) {
	if len(out) != 3 {
		return nil, fmt.Errorf("%s: expected 3 outputs, got %d", methodGetFullNexusBatch, len(out))
	}
	authors, err := convert[[]common.Address](out[0])
	if err != nil {
		return nil, fmt.Errorf("%s: authors: %w", methodGetFullNexusBatch, err)
	}
	contents, err := convert[[]string](out[1])
	if err != nil {
		return nil, fmt.Errorf("%s: contents: %w", methodGetFullNexusBatch, err)
	}
	nexts, err := convert[[][]*big.Int](out[2])
	if err != nil {
		return nil, fmt.Errorf("%s: nexts: %w", methodGetFullNexusBatch, err)
	}
	if len(contents) != len(authors) || len(nexts) != len(authors) {
		return nil, fmt.Errorf("%s: mismatched array lengths %d/%d/%d",
			methodGetFullNexusBatch, len(authors), len(contents), len(nexts))
	}

	nexuses := make([]entities.Nexus, len(authors))
	for i := range nexuses {
		next := make([]valueobjects.OptioID, len(nexts[i]))
		for j, raw := range nexts[i] {
			id, err := valueobjects.NewOptioID(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: next[%d][%d]: %w", methodGetFullNexusBatch, i, j, err)
			}
			next[j] = id
		}
		nexuses[i] = entities.Nexus{
			Author:  authors[i].Hex(),
			Content: contents[i],
			Next:    next,
		}
	}
	return nexuses, nil
}

// decodeOptioBatch converts the (authors, contents, origins, destinations,
// scores) tuple of getFullOptioBatch.
func decodeOptioBatch(out []interface{}) ([]entities.Optio, error) {
	if len(out) != 5 {
		return nil, fmt.Errorf("%s: expected 5 outputs, got %d", methodGetFullOptioBatch, len(out))
	}
	authors, err := convert[[]common.Address](out[0])
	if err != nil {
		return nil, fmt.Errorf("%s: authors: %w", methodGetFullOptioBatch, err)
	}
	contents, err := convert[[]string](out[1])
	if err != nil {
		return nil, fmt.Errorf("%s: contents: %w", methodGetFullOptioBatch, err)
	}
	origins, err := convert[[]*big.Int](out[2])
	if err != nil {
		return nil, fmt.Errorf("%s: origins: %w", methodGetFullOptioBatch, err)
	}
	destinations, err := convert[[]*big.Int](out[3])
	if err != nil {
		return nil, fmt.Errorf("%s: destinations: %w", methodGetFullOptioBatch, err)
	}
	scores, err := convert[[]*big.Int](out[4])
	if err != nil {
		return nil, fmt.Errorf("%s: scores: %w", methodGetFullOptioBatch, err)
	}
	n := len(authors)
	if len(contents) != n || len(origins) != n || len(destinations) != n || len(scores) != n {
		return nil, fmt.Errorf("%s: mismatched array lengths", methodGetFullOptioBatch)
	}

	optios := make([]entities.Optio, n)
	for i := range optios {
		origin, err := valueobjects.NewNexusID(origins[i])
		if err != nil {
			return nil, fmt.Errorf("%s: origin[%d]: %w", methodGetFullOptioBatch, i, err)
		}
		destination, err := valueobjects.NewNexusID(destinations[i])
		if err != nil {
			return nil, fmt.Errorf("%s: destination[%d]: %w", methodGetFullOptioBatch, i, err)
		}
		optios[i] = entities.Optio{
			Author:      authors[i].Hex(),
			Content:     contents[i],
			Origin:      origin,
			Destination: destination,
			Score:       new(big.Int).Set(scores[i]),
		}
	}
	return optios, nil
}
