// Package contactkit verifies the contact data of scraped job listings:
// one email address and a handful of URLs per record. Emails are checked
// at the syntax, MX, disposable-domain and SMTP levels, URLs at the
// format, platform and reachability levels, and each record gets an
// aggregate verdict.
//
// Basic usage:
//
//	v, err := contactkit.New(contactkit.Standard())
//	if err != nil {
//	    return err
//	}
//	defer v.Close()
//	res := v.VerifyRecord(ctx, contactkit.Record{
//	    "id":      "42",
//	    "email":   "jobs@example.com",
//	    "website": "https://example.com",
//	})
//
// Batches:
//
//	results := v.VerifyBatch(ctx, records, contactkit.WithProgress(func(done, total int) {
//	    log.Printf("%d/%d", done, total)
//	}))
//	kept, dropped := contactkit.Partition(records, results, v.Config().FilterPolicy())
package contactkit

import "github.com/optimode/contactkit/types"

// EmailResult is a re-export from the types package so that consumers
// don't need to import the types package directly.
type EmailResult = types.EmailResult

// URLResult is a re-export.
type URLResult = types.URLResult

// Status is a re-export.
type Status = types.Status

// Overall is a re-export.
type Overall = types.Overall

// Status constants re-exported.
const (
	StatusValid    = types.StatusValid
	StatusInvalid  = types.StatusInvalid
	StatusUnknown  = types.StatusUnknown
	StatusRisky    = types.StatusRisky
	StatusRedirect = types.StatusRedirect
)

// Overall constants re-exported.
const (
	OverallValid   = types.OverallValid
	OverallPartial = types.OverallPartial
	OverallInvalid = types.OverallInvalid
	OverallUnknown = types.OverallUnknown
)
