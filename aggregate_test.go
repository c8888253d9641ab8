package contactkit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optimode/contactkit"
	"github.com/optimode/contactkit/types"
)

func emailRes(s types.Status) *types.EmailResult {
	return &types.EmailResult{Email: "jobs@acme.com", Status: s}
}

func urlRes(field string, s types.Status, typ types.URLType) types.URLResult {
	return types.URLResult{URL: "https://example.com/" + field, Field: field, Status: s, Type: typ}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name    string
		email   *types.EmailResult
		urls    []types.URLResult
		want    types.Overall
		contact bool
	}{
		{"nothing checked", nil, nil, types.OverallInvalid, false},
		{"email only valid", emailRes(types.StatusValid), nil, types.OverallValid, true},
		{"email only invalid", emailRes(types.StatusInvalid), nil, types.OverallInvalid, false},
		{"email only unknown", emailRes(types.StatusUnknown), nil, types.OverallInvalid, false},
		{
			"all valid",
			emailRes(types.StatusValid),
			[]types.URLResult{urlRes("website", types.StatusValid, types.URLWebsite)},
			types.OverallValid, true,
		},
		{
			"all invalid",
			emailRes(types.StatusInvalid),
			[]types.URLResult{urlRes("website", types.StatusInvalid, types.URLOther)},
			types.OverallInvalid, false,
		},
		{
			"valid email with broken website",
			emailRes(types.StatusValid),
			[]types.URLResult{urlRes("website", types.StatusInvalid, types.URLOther)},
			types.OverallPartial, true,
		},
		{
			"linkedin field rescues",
			emailRes(types.StatusInvalid),
			[]types.URLResult{urlRes("linkedin", types.StatusValid, types.URLOther)},
			types.OverallPartial, true,
		},
		{
			"linkedin person under another field",
			emailRes(types.StatusInvalid),
			[]types.URLResult{urlRes("platform_link", types.StatusValid, types.URLLinkedInPerson)},
			types.OverallPartial, true,
		},
		{
			"linkedin job is not a contact",
			emailRes(types.StatusInvalid),
			[]types.URLResult{urlRes("platform_link", types.StatusValid, types.URLLinkedInJob)},
			types.OverallInvalid, false,
		},
		{
			"website alone is not a contact",
			emailRes(types.StatusInvalid),
			[]types.URLResult{urlRes("website", types.StatusValid, types.URLWebsite)},
			types.OverallInvalid, false,
		},
		{
			"redirect is neither valid nor invalid",
			emailRes(types.StatusValid),
			[]types.URLResult{urlRes("website", types.StatusRedirect, types.URLWebsite)},
			types.OverallPartial, true,
		},
		{
			"risky email with valid linkedin",
			emailRes(types.StatusRisky),
			[]types.URLResult{urlRes("linkedin", types.StatusValid, types.URLLinkedInCompany)},
			types.OverallPartial, true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			urls := map[string]types.URLResult{}
			for _, u := range tt.urls {
				urls[u.Field] = u
			}
			assert.Equal(t, tt.want, contactkit.Aggregate(tt.email, urls))

			res := contactkit.ProjectResult{Email: tt.email, URLs: urls}
			assert.Equal(t, tt.contact, res.HasValidContact())
		})
	}
}

func TestAggregate_SkipsEmptyURLs(t *testing.T) {
	urls := map[string]types.URLResult{
		"website": {Field: "website", Status: types.StatusInvalid},
	}
	assert.Equal(t, types.OverallValid, contactkit.Aggregate(emailRes(types.StatusValid), urls))
}
