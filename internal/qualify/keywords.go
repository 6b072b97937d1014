package qualify

import "strings"

// KeywordTable maps free-text category values from ad forms to the canonical
// category slugs used on customer batches. Order matters: first match wins.
type KeywordTable []CategoryKeywords

// CategoryKeywords binds one canonical slug to the keywords that imply it.
type CategoryKeywords struct {
	Slug     string
	Keywords []string
}

// DefaultKeywords covers the Dutch home-improvement categories the platform
// routes. Keyword lists mix Dutch and English because ad forms do.
var DefaultKeywords = KeywordTable{
	{"windows", []string{"kozijn", "kozijnen", "raam", "ramen", "window", "windows", "glas", "glaswerk", "deur", "deuren", "door", "doors", "beglazing", "dubbel glas", "hr++", "triple glas"}},
	{"insulation", []string{"isolatie", "isoleren", "insulation", "spouwmuur", "vloerisolatie", "dakisolatie", "muurisolatie", "cavity wall", "floor insulation", "roof insulation"}},
	{"solar", []string{"solar", "zonnepaneel", "zonnepanelen", "zonne-energie", "pv", "zonneboiler", "solar panel"}},
	{"hvac", []string{"hvac", "warmtepomp", "heat pump", "airco", "airconditioning", "verwarming", "heating", "ventilatie", "ventilation", "cv", "cv-ketel", "boiler"}},
	{"plumbing", []string{"loodgieter", "plumbing", "sanitair", "afvoer", "drain", "waterleiding", "badkamer", "bathroom", "kraan", "toilet"}},
	{"electrical", []string{"elektra", "electrical", "electrician", "bedrading", "wiring", "meterkast", "laadpaal", "charging station", "ev charger"}},
	{"carpentry", []string{"timmerwerk", "timmerman", "carpentry", "carpenter", "hout", "wood", "vloer", "floor", "parket", "laminaat", "trap", "stairs"}},
	{"handyman", []string{"klusjesman", "handyman", "klussen", "reparatie", "repair", "onderhoud", "maintenance"}},
}

// Match maps a raw category value to a canonical slug, or "" when nothing
// matches. Exact slug matches win before keyword containment.
func (t KeywordTable) Match(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return ""
	}
	for _, c := range t {
		if v == c.Slug {
			return c.Slug
		}
	}
	for _, c := range t {
		for _, kw := range c.Keywords {
			if strings.Contains(v, kw) {
				return c.Slug
			}
		}
	}
	return ""
}
