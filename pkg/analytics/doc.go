// Package analytics renders Google Analytics tracking snippets for
// server-rendered pages.
//
// A Writer collects the tracking intents of a single page (events, ecommerce
// transactions, custom dimensions and metrics, cross-domain linking and the
// user id) and renders them for one of the supported libraries:
//
//	w, err := analytics.New("UA-123123-1", analytics.WithMode(analytics.ModeGtag))
//	if err != nil {
//		return err
//	}
//	w.TrackEvent(analytics.Fields{
//		analytics.FieldCategory: "Videos",
//		analytics.FieldAction:   "Play",
//	})
//	snippet, err := w.Render()
//
// Intents use native field names (see the Field constants). Each renderer
// translates them into the vendor keys or positional arguments its library
// expects and drops fields the library has no use for. Intents missing
// required fields are rendered as JavaScript comments so a page never ships a
// broken call.
package analytics
