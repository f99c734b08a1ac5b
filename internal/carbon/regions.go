package carbon

// DefaultZone is the fallback Electricity Maps zone.
const DefaultZone = "US-CAL-CISO"

// DefaultMockIntensity is the baseline used for zones without an entry in
// the regional table, in gCO2/kWh.
const DefaultMockIntensity = 650.0

// Regional baseline intensities (gCO2/kWh) used for mocked readings when
// the API is unavailable.
var regionMockIntensities = map[string]float64{
	"US":          450,
	"US-CAL-CISO": 350,
	"GB":          250,
	"DE":          420,
	"FR":          60,
	"JP":          550,
	"CN":          700,
	"IN":          750,
	"AU":          680,
}

// Short region codes accepted by the API surface, mapped to Electricity
// Maps zones.
var regionCodeZones = map[string]string{
	"US":   "US",
	"GB":   "GB",
	"DE":   "DE",
	"FR":   "FR",
	"JP":   "JP",
	"CN":   "CN",
	"IN":   "IN",
	"AU":   "AU",
	"auto": DefaultZone,
}

// MapRegionCode resolves a short region code to a provider zone. Unknown
// codes are normalized to the default zone rather than rejected.
func MapRegionCode(code string) string {
	if zone, ok := regionCodeZones[code]; ok {
		return zone
	}

	return DefaultZone
}

func mockBaseline(zone string) float64 {
	if base, ok := regionMockIntensities[zone]; ok {
		return base
	}

	return DefaultMockIntensity
}
