package contactkit

import "github.com/optimode/contactkit/types"

// LinkedInField is the record key whose Valid result always counts as a
// strong contact signal.
const LinkedInField = "linkedin"

// Aggregate folds the per-field results of one record into its overall
// verdict. Fields that are all Valid give Valid, all Invalid give Invalid.
// A mixed record is Partial only when it has a strong contact signal (see
// HasValidContact) and Invalid otherwise. A record with nothing checked
// is Invalid.
func Aggregate(email *types.EmailResult, urls map[string]types.URLResult) types.Overall {
	var total, valid, invalid int
	count := func(s types.Status) {
		total++
		switch s {
		case types.StatusValid:
			valid++
		case types.StatusInvalid:
			invalid++
		}
	}

	if email != nil {
		count(email.Status)
	}
	for _, u := range urls {
		if u.URL == "" {
			continue
		}
		count(u.Status)
	}

	switch {
	case total == 0:
		return types.OverallInvalid
	case valid == total:
		return types.OverallValid
	case invalid == total:
		return types.OverallInvalid
	case hasValidContact(email, urls):
		return types.OverallPartial
	}
	return types.OverallInvalid
}

// hasValidContact reports whether the record has a valid email or a valid
// LinkedIn company or person page.
func hasValidContact(email *types.EmailResult, urls map[string]types.URLResult) bool {
	if email != nil && email.Status == types.StatusValid {
		return true
	}
	if li, ok := urls[LinkedInField]; ok && li.Status == types.StatusValid {
		return true
	}
	for _, u := range urls {
		if u.Status == types.StatusValid && u.Type.IsLinkedInProfile() {
			return true
		}
	}
	return false
}
