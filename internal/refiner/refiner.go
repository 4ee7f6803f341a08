// Package refiner polishes a back-translated draft so it reads like the
// student wrote it in their own language.
package refiner

import "context"

// Refiner reviews and improves a draft translation.
type Refiner interface {
	Refine(ctx context.Context, sourceLang, targetLang, sourceText, draftText string) (string, error)
}
