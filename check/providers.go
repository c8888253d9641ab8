package check

// freeProviders are consumer mailbox domains. Addresses on them are
// classified as free rather than corporate.
var freeProviders = map[string]struct{}{
	// International
	"gmail.com": {}, "googlemail.com": {}, "yahoo.com": {}, "yahoo.co.uk": {},
	"yahoo.fr": {}, "yahoo.de": {}, "hotmail.com": {}, "hotmail.co.uk": {},
	"outlook.com": {}, "live.com": {}, "aol.com": {}, "icloud.com": {},
	"me.com": {}, "mac.com": {}, "protonmail.com": {}, "proton.me": {},
	"zoho.com": {}, "yandex.com": {}, "yandex.ru": {}, "mail.com": {},
	"gmx.com": {}, "gmx.net": {}, "gmx.de": {}, "fastmail.com": {},
	"tutanota.com": {},
	// China
	"qq.com": {}, "163.com": {}, "126.com": {}, "foxmail.com": {},
	"sina.com": {}, "sohu.com": {}, "yeah.net": {}, "aliyun.com": {},
	"139.com": {}, "189.cn": {},
	// Other regions
	"mail.ru": {}, "rambler.ru": {}, "ukr.net": {}, "rediffmail.com": {},
	"freemail.hu": {}, "citromail.hu": {},
}

// typoCandidates are the providers most often mistyped. A domain within
// two edits of one of them gets a suggestion.
var typoCandidates = []string{
	"gmail.com", "googlemail.com", "yahoo.com", "outlook.com", "hotmail.com",
	"live.com", "icloud.com", "protonmail.com", "aol.com", "zoho.com",
	"yandex.com", "gmx.com", "gmx.net", "fastmail.com", "qq.com",
	"163.com", "126.com", "foxmail.com", "mail.ru",
}

// IsFreeProvider reports whether domain is a known consumer mailbox domain.
func IsFreeProvider(domain string) bool {
	_, ok := freeProviders[domain]
	return ok
}
