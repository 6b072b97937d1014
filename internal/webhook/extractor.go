package webhook

import (
	"regexp"
	"strings"

	"leadrouter_backend/internal/geo"
	"leadrouter_backend/platform/phone"
)

// ExtractedFields holds the lead fields recovered from a variable-schema ad
// payload via label matching.
type ExtractedFields struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Street      string
	HouseNumber string
	ZipCode     string
	City        string
	Category    string
}

// HasContact reports whether at least one usable contact method was found.
func (e ExtractedFields) HasContact() bool {
	return e.Email != "" || e.Phone != ""
}

// ExtractFields performs best-effort field extraction from a flat string map.
// Provider forms name their fields freely; labels are matched against known
// Dutch and English synonyms.
func ExtractFields(data map[string]string, keywords CategoryMatcher) ExtractedFields {
	var result ExtractedFields

	for key, value := range data {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		switch fieldForLabel(key) {
		case fieldFirstName:
			result.FirstName = value
		case fieldLastName:
			result.LastName = value
		case fieldFullName:
			first, last := splitFullName(value)
			result.FirstName = first
			result.LastName = last
		case fieldEmail:
			if emailRe.MatchString(value) {
				result.Email = strings.ToLower(value)
			}
		case fieldPhone:
			result.Phone = phone.NormalizeE164(value)
		case fieldStreet:
			result.Street = value
		case fieldHouseNumber:
			result.HouseNumber = value
		case fieldZipCode:
			if pc, ok := geo.NormalizePostcode(value); ok {
				result.ZipCode = pc
			}
		case fieldCity:
			result.City = value
		case fieldAddress:
			parseAddress(value, &result)
		case fieldCategory:
			if slug := keywords.Match(value); slug != "" {
				result.Category = slug
			}
		}
	}

	// A bare "name" field often carries "First Last".
	if result.FirstName != "" && result.LastName == "" && strings.Contains(result.FirstName, " ") {
		result.FirstName, result.LastName = splitFullName(result.FirstName)
	}

	return result
}

// CategoryMatcher maps free-text category values to canonical slugs.
type CategoryMatcher interface {
	Match(value string) string
}

type field int

const (
	fieldUnknown field = iota
	fieldFirstName
	fieldLastName
	fieldFullName
	fieldEmail
	fieldPhone
	fieldStreet
	fieldHouseNumber
	fieldZipCode
	fieldCity
	fieldAddress
	fieldCategory
)

// labelSynonyms maps normalized field labels (Dutch + English) to fields.
// Checked in declaration order so specific labels beat generic ones.
var labelSynonyms = []struct {
	field  field
	labels []string
}{
	{fieldFirstName, []string{"first_name", "firstname", "first name", "voornaam", "given_name", "givenname", "fname"}},
	{fieldLastName, []string{"last_name", "lastname", "last name", "achternaam", "family_name", "familyname", "surname", "lname"}},
	{fieldFullName, []string{"name", "naam", "full_name", "fullname", "your_name", "your name"}},
	{fieldEmail, []string{"email", "e-mail", "e_mail", "emailaddress", "email_address", "mail"}},
	{fieldPhone, []string{"phone", "telefoon", "tel", "telephone", "phonenumber", "phone_number", "telefoonnummer", "mobile", "mobiel", "gsm"}},
	{fieldStreet, []string{"street", "straat", "straatnaam", "street_name", "streetname"}},
	{fieldHouseNumber, []string{"house_number", "housenumber", "huisnummer", "house number", "nr", "number", "nummer"}},
	{fieldZipCode, []string{"zip", "zipcode", "zip_code", "postcode", "postal_code", "postalcode", "zip code", "postal code"}},
	{fieldCity, []string{"city", "stad", "woonplaats", "plaats", "town", "gemeente", "location", "locatie"}},
	{fieldAddress, []string{"address", "adres", "full_address", "fulladdress"}},
	{fieldCategory, []string{"service", "dienst", "project_type", "projecttype", "service_type", "servicetype", "type", "werkzaamheden", "soort", "category", "categorie", "product", "interest", "interesse"}},
}

var (
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	dutchZipRe = regexp.MustCompile(`(\d{4})\s*([A-Za-z]{2})`)
	labelNorm  = strings.NewReplacer("-", "", "_", "", " ", "")
)

func fieldForLabel(label string) field {
	normalized := labelNorm.Replace(strings.ToLower(strings.TrimSpace(label)))
	for _, entry := range labelSynonyms {
		for _, l := range entry.labels {
			if normalized == labelNorm.Replace(l) {
				return entry.field
			}
		}
	}
	return fieldUnknown
}

func splitFullName(value string) (first, last string) {
	parts := strings.SplitN(strings.TrimSpace(value), " ", 2)
	first = parts[0]
	if len(parts) > 1 {
		last = parts[1]
	}
	return first, last
}

// parseAddress handles combined address fields: "Street 12" or
// "Street 12, 1234 AB City". Never overwrites fields set from dedicated labels.
func parseAddress(value string, result *ExtractedFields) {
	parts := strings.SplitN(value, ",", 2)

	words := strings.Fields(strings.TrimSpace(parts[0]))
	if len(words) >= 2 && words[len(words)-1][0] >= '0' && words[len(words)-1][0] <= '9' {
		if result.Street == "" {
			result.Street = strings.Join(words[:len(words)-1], " ")
		}
		if result.HouseNumber == "" {
			result.HouseNumber = words[len(words)-1]
		}
	} else if result.Street == "" {
		result.Street = strings.TrimSpace(parts[0])
	}

	if len(parts) != 2 {
		return
	}
	rest := strings.TrimSpace(parts[1])
	if m := dutchZipRe.FindStringSubmatchIndex(rest); m != nil {
		if result.ZipCode == "" {
			if pc, ok := geo.NormalizePostcode(rest[m[0]:m[1]]); ok {
				result.ZipCode = pc
			}
		}
		if after := strings.TrimSpace(rest[m[1]:]); result.City == "" && after != "" {
			result.City = after
		}
	} else if result.City == "" {
		result.City = rest
	}
}
