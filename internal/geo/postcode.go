package geo

import (
	"regexp"
	"strings"
)

// Dutch postal codes are four digits followed by two letters ("1234 AB").
// The leading digit is never zero.
var postcodeRe = regexp.MustCompile(`^([1-9]\d{3})\s*([A-Za-z]{2})$`)

// NormalizePostcode canonicalizes a Dutch postal code to "1234AB" form.
// Returns false when the input does not look like a Dutch postal code at all.
func NormalizePostcode(input string) (string, bool) {
	m := postcodeRe.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return "", false
	}
	return m[1] + strings.ToUpper(m[2]), true
}

// districtCentroids maps the first two postcode digits to an approximate
// centroid of that postcode district. Best effort: the table covers the
// populous districts; anything missing falls through to the zone table.
var districtCentroids = map[string]Coordinate{
	"10": {52.370, 4.895}, // Amsterdam
	"11": {52.350, 4.960}, // Amsterdam Zuidoost / Diemen
	"12": {52.223, 5.176}, // Hilversum
	"13": {52.370, 5.218}, // Almere
	"14": {52.505, 4.960}, // Purmerend
	"15": {52.438, 4.827}, // Zaandam
	"16": {52.642, 5.060}, // Hoorn
	"17": {52.787, 4.799}, // Den Helder / Schagen
	"18": {52.632, 4.749}, // Alkmaar
	"19": {52.462, 4.657}, // Beverwijk / IJmuiden
	"20": {52.387, 4.646}, // Haarlem
	"21": {52.350, 4.659}, // Heemstede
	"22": {52.219, 4.426}, // Katwijk / Noordwijk
	"23": {52.160, 4.497}, // Leiden
	"24": {52.078, 4.440}, // Leidschendam
	"25": {52.078, 4.312}, // Den Haag
	"26": {52.012, 4.357}, // Delft
	"27": {52.060, 4.494}, // Zoetermeer
	"28": {52.011, 4.710}, // Gouda
	"29": {51.928, 4.555}, // Capelle aan den IJssel
	"30": {51.922, 4.479}, // Rotterdam
	"31": {51.917, 4.398}, // Schiedam / Vlaardingen
	"32": {51.863, 4.325}, // Spijkenisse
	"33": {51.813, 4.668}, // Dordrecht
	"34": {52.015, 4.999}, // IJsselstein / Lopik
	"35": {52.091, 5.122}, // Utrecht
	"36": {52.140, 5.040}, // Maarssen
	"37": {52.058, 5.325}, // Zeist / Driebergen
	"38": {52.175, 5.293}, // Amersfoort
	"39": {52.039, 5.558}, // Veenendaal
	"40": {51.890, 5.430}, // Tiel
	"41": {51.807, 5.096}, // Gorinchem omgeving
	"42": {51.830, 4.970}, // Leerdam
	"43": {51.494, 3.849}, // Middelburg / Goes
	"44": {51.453, 4.130}, // Bergen op Zoom omgeving
	"45": {51.333, 3.832}, // Terneuzen
	"46": {51.495, 4.292}, // Bergen op Zoom
	"47": {51.590, 4.560}, // Roosendaal / Etten-Leur
	"48": {51.587, 4.776}, // Breda
	"49": {51.540, 4.448}, // Oudenbosch
	"50": {51.690, 5.300}, // Den Bosch omgeving
	"51": {51.630, 5.040}, // Waalwijk
	"52": {51.697, 5.304}, // 's-Hertogenbosch
	"53": {51.770, 5.520}, // Oss
	"54": {51.660, 5.620}, // Uden / Veghel
	"55": {51.441, 5.470}, // Eindhoven
	"56": {51.470, 5.660}, // Helmond
	"57": {51.420, 5.280}, // Valkenswaard / Veldhoven
	"58": {51.370, 6.170}, // Venray / Horst
	"59": {51.370, 6.170}, // Venlo omgeving
	"60": {51.250, 5.710}, // Weert
	"61": {51.190, 5.990}, // Roermond
	"62": {50.888, 5.980}, // Heerlen omgeving
	"63": {50.888, 5.980}, // Heerlen
	"64": {50.865, 6.020}, // Kerkrade
	"65": {51.840, 5.860}, // Nijmegen
	"66": {51.880, 5.730}, // Wijchen / Beuningen
	"67": {51.985, 5.899}, // Arnhem
	"68": {51.985, 5.950}, // Arnhem Zuid / Velp
	"69": {51.920, 6.060}, // Zevenaar / Didam
	"70": {52.046, 6.640}, // Achterhoek
	"71": {52.140, 6.190}, // Zutphen
	"72": {52.255, 6.160}, // Deventer
	"73": {52.350, 6.660}, // Almelo omgeving
	"74": {52.263, 6.793}, // Hengelo
	"75": {52.220, 6.890}, // Enschede
	"76": {52.360, 6.460}, // Nijverdal / Rijssen
	"77": {52.530, 6.580}, // Hardenberg
	"78": {52.720, 6.480}, // Hoogeveen omgeving
	"79": {52.720, 6.480}, // Hoogeveen
	"80": {52.516, 6.083}, // Zwolle
	"81": {52.350, 5.620}, // Harderwijk / Nunspeet
	"82": {52.518, 5.471}, // Lelystad
	"83": {52.710, 5.750}, // Noordoostpolder
	"84": {52.960, 6.060}, // Drachten omgeving
	"85": {52.960, 5.730}, // Joure / Sneek
	"86": {52.850, 5.650}, // Sneek omgeving
	"87": {53.030, 5.660}, // Bolsward / Franeker
	"88": {53.180, 5.430}, // Harlingen / Franeker
	"89": {53.201, 5.799}, // Leeuwarden
	"90": {53.220, 5.850}, // Leeuwarden omgeving
	"91": {53.110, 6.090}, // Drachten
	"92": {53.105, 6.060}, // Drachten / Beetsterzwaag
	"93": {53.000, 6.560}, // Assen
	"94": {52.790, 6.900}, // Emmen
	"95": {53.320, 6.750}, // Appingedam / Delfzijl
	"96": {53.330, 6.480}, // Bedum omgeving
	"97": {53.219, 6.567}, // Groningen
	"98": {53.240, 6.530}, // Groningen Noord
	"99": {53.330, 6.920}, // Oost-Groningen
}

// zoneCentroids maps the first postcode digit to a coarse zone centroid.
var zoneCentroids = map[byte]Coordinate{
	'1': {52.380, 4.900}, // Noord-Holland / Amsterdam
	'2': {52.160, 4.490}, // Zuid-Holland noord / Haarlem
	'3': {51.990, 4.800}, // Zuid-Holland zuid / Utrecht
	'4': {51.500, 4.300}, // Zeeland / West-Brabant
	'5': {51.560, 5.300}, // Brabant / Noord-Limburg
	'6': {51.600, 5.900}, // Limburg / Gelderland zuid
	'7': {52.200, 6.400}, // Oost-Nederland
	'8': {52.700, 5.900}, // Flevoland / Friesland / Zwolle
	'9': {53.150, 6.400}, // Groningen / Drenthe / Friesland noord
}

// lookupStatic resolves a normalized postcode against the embedded tables.
// The boolean is false only when even the zone table has no entry, which
// cannot happen for a well-formed code but keeps the contract explicit.
func lookupStatic(normalized string) (Coordinate, Precision, bool) {
	if c, ok := districtCentroids[normalized[:2]]; ok {
		return c, PrecisionDistrict, true
	}
	if c, ok := zoneCentroids[normalized[0]]; ok {
		return c, PrecisionArea, true
	}
	return Coordinate{}, "", false
}
