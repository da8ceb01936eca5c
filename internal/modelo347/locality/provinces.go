// Package locality maps address data to the locality codes used by the
// Modelo 347 record layout.
package locality

import "strings"

// UnknownProvince is returned for names that are not a Spanish province.
const UnknownProvince = "99"

// provinceCodes holds every accepted spelling in lower case, including the
// co-official and legacy variants found in customer address books.
var provinceCodes = map[string]string{
	"araba": "01", "alava": "01", "álava": "01",
	"albacete": "02",
	"alicante": "03", "alacant": "03",
	"almeria": "04", "almería": "04",
	"avila": "05", "ávila": "05",
	"badajoz": "06",
	"illes balears": "07", "islas baleares": "07",
	"barcelona": "08",
	"burgos": "09",
	"caceres": "10", "cáceres": "10",
	"cadiz": "11", "cádiz": "11",
	"castellon": "12", "castellón": "12", "castello": "12",
	"ciudad real": "13",
	"cordoba": "14", "córdoba": "14",
	"coruña": "15", "a coruña": "15",
	"cuenca": "16",
	"girona": "17",
	"granada": "18",
	"guadalajara": "19",
	"guipuzcoa": "20", "gipúzkoa": "20", "gipuzkoa": "20",
	"huelva": "21",
	"huesca": "22",
	"jaen": "23", "jaén": "23",
	"leon": "24", "león": "24",
	"lleida": "25",
	"la rioja": "26",
	"lugo": "27",
	"madrid": "28",
	"malaga": "29", "málaga": "29",
	"murcia": "30",
	"navarra": "31",
	"ourense": "32",
	"asturias": "33",
	"palencia": "34",
	"las palmas": "35",
	"pontevedra": "36",
	"salamanca": "37",
	"santa cruz de tenerife": "38", "tenerife": "38", "s.c.tenerife": "38",
	"cantabria": "39",
	"segovia": "40",
	"sevilla": "41",
	"soria": "42",
	"tarragona": "43",
	"teruel": "44",
	"toledo": "45",
	"valencia": "46", "valència": "46",
	"valladolid": "47",
	"vizcaya": "48", "bizkaia": "48",
	"zamora": "49",
	"zaragoza": "50",
	"ceuta": "51",
	"melilla": "52",
}

// ProvinceCode returns the two digit province code for name, or
// UnknownProvince when the name does not match any known spelling.
func ProvinceCode(name string) string {
	if code, ok := provinceCodes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return code
	}
	return UnknownProvince
}
