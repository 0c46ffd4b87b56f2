package harvest

import "context"

// Page is the minimal browser surface the harvester drives. It is satisfied
// by browser.Page; tests substitute a scripted fake. The harvester never
// manages navigation, cookies, or browser lifecycle through this interface.
type Page interface {
	// Evaluate runs a JavaScript expression against the current document and
	// unmarshals the result into out. Pass nil to discard the result.
	Evaluate(ctx context.Context, expr string, out any) error

	// CloseDialog dismisses any open modal dialog (typically an Escape key
	// dispatch). Called on every harvest exit path, normal or cancelled.
	CloseDialog(ctx context.Context) error
}
