// Package export defines the outbound port for pushing posted
// transactions to an external spreadsheet.
package export

import (
	"context"

	"bilancio/internal/core"
)

type (
	// RowAppender appends one transaction as a row and returns a
	// backend-specific reference to where it landed.
	RowAppender interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}
)
