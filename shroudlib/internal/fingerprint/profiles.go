package fingerprint

import (
	"fmt"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile is a browser family whose handshake we mimic.
type Profile uint8

const (
	ProfileRandom Profile = iota
	ProfileChrome
	ProfileFirefox
	ProfileSafari
	ProfileIOS
	ProfileEdge
	ProfileAndroid
)

var profileNames = map[Profile]string{
	ProfileRandom:  "random",
	ProfileChrome:  "chrome",
	ProfileFirefox: "firefox",
	ProfileSafari:  "safari",
	ProfileIOS:     "ios",
	ProfileEdge:    "edge",
	ProfileAndroid: "android",
}

func (p Profile) String() string {
	if name, ok := profileNames[p]; ok {
		return name
	}

	return fmt.Sprintf("profile(%d)", uint8(p))
}

func (p Profile) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Profile) UnmarshalText(data []byte) error {
	value, err := ParseProfile(string(data))
	if err != nil {
		return err
	}

	*p = value

	return nil
}

// ParseProfile parses a profile name, case insensitive.
func ParseProfile(value string) (Profile, error) {
	value = strings.ToLower(strings.TrimSpace(value))

	for k, v := range profileNames {
		if v == value {
			return k, nil
		}
	}

	return ProfileRandom, fmt.Errorf("unknown browser profile %q", value)
}

// template is a handshake shape mined from a real browser.
type template struct {
	weight              int
	engineTag           string
	helloID             utls.ClientHelloID
	cipherSuites        []uint16
	extensions          []uint16
	curves              []uint16
	pointFormats        []uint8
	signatureAlgorithms []uint16
}

// TLS 1.3 suites always go first, browsers never reorder them.
var mandatoryCipherSuites = []uint16{0x1301, 0x1302, 0x1303}

var chromiumSignatureAlgorithms = []uint16{
	0x0403, 0x0804, 0x0401, 0x0503, 0x0805, 0x0501, 0x0806, 0x0601,
}

var templates = map[Profile]template{
	ProfileChrome: {
		weight:    45,
		engineTag: "chrome",
		helloID:   utls.HelloChrome_Auto,
		cipherSuites: []uint16{
			0x1301, 0x1302, 0x1303, 0xc02b, 0xc02f, 0xc02c, 0xc030, 0xcca9,
			0xcca8, 0xc013, 0xc014, 0x009c, 0x009d, 0x002f, 0x0035,
		},
		extensions: []uint16{
			0, 23, 65281, 10, 11, 35, 16, 5, 13, 18, 51, 45, 43, 27, 17513, 21,
		},
		curves:              []uint16{29, 23, 24},
		pointFormats:        []uint8{0},
		signatureAlgorithms: chromiumSignatureAlgorithms,
	},
	ProfileFirefox: {
		weight:    12,
		engineTag: "firefox",
		helloID:   utls.HelloFirefox_Auto,
		cipherSuites: []uint16{
			0x1301, 0x1303, 0x1302, 0xc02b, 0xc02f, 0xcca9, 0xcca8, 0xc02c,
			0xc030, 0xc00a, 0xc009, 0xc013, 0xc014, 0x009c, 0x009d, 0x002f,
			0x0035,
		},
		extensions: []uint16{
			0, 23, 65281, 10, 11, 35, 16, 5, 34, 51, 43, 13, 45, 28, 21,
		},
		curves:       []uint16{29, 23, 24, 25, 256, 257},
		pointFormats: []uint8{0},
		signatureAlgorithms: []uint16{
			0x0403, 0x0503, 0x0603, 0x0804, 0x0805, 0x0806, 0x0401, 0x0501,
			0x0601, 0x0203, 0x0201,
		},
	},
	ProfileSafari: {
		weight:    12,
		engineTag: "safari",
		helloID:   utls.HelloSafari_Auto,
		cipherSuites: []uint16{
			0x1301, 0x1302, 0x1303, 0xc02c, 0xc02b, 0xcca9, 0xc030, 0xc02f,
			0xcca8, 0xc00a, 0xc009, 0xc014, 0xc013, 0x009d, 0x009c, 0x0035,
			0x002f, 0xc008, 0xc012, 0x000a,
		},
		extensions: []uint16{
			0, 23, 65281, 10, 11, 16, 5, 13, 18, 51, 45, 43, 27, 21,
		},
		curves:       []uint16{29, 23, 24, 25},
		pointFormats: []uint8{0},
		signatureAlgorithms: []uint16{
			0x0403, 0x0804, 0x0401, 0x0503, 0x0203, 0x0805, 0x0501,
			0x0806, 0x0601, 0x0201,
		},
	},
	ProfileIOS: {
		weight:    10,
		engineTag: "ios",
		helloID:   utls.HelloIOS_Auto,
		cipherSuites: []uint16{
			0x1301, 0x1302, 0x1303, 0xc02c, 0xc02b, 0xcca9, 0xc030, 0xc02f,
			0xcca8, 0xc00a, 0xc009, 0xc014, 0xc013, 0x009d, 0x009c, 0x0035,
			0x002f,
		},
		extensions: []uint16{
			0, 23, 65281, 10, 11, 16, 5, 13, 18, 51, 45, 43, 27,
		},
		curves:       []uint16{29, 23, 24, 25},
		pointFormats: []uint8{0},
		signatureAlgorithms: []uint16{
			0x0403, 0x0804, 0x0401, 0x0503, 0x0203, 0x0805, 0x0501, 0x0806,
			0x0601, 0x0201,
		},
	},
	ProfileEdge: {
		weight:    11,
		engineTag: "edge",
		helloID:   utls.HelloEdge_Auto,
		cipherSuites: []uint16{
			0x1301, 0x1302, 0x1303, 0xc02b, 0xc02f, 0xc02c, 0xc030, 0xcca9,
			0xcca8, 0xc013, 0xc014, 0x009c, 0x009d, 0x002f, 0x0035,
		},
		extensions: []uint16{
			0, 23, 65281, 10, 11, 35, 16, 5, 13, 18, 51, 45, 43, 27, 17513,
		},
		curves:              []uint16{29, 23, 24},
		pointFormats:        []uint8{0},
		signatureAlgorithms: chromiumSignatureAlgorithms,
	},
	ProfileAndroid: {
		weight:    10,
		engineTag: "android",
		helloID:   utls.HelloAndroid_11_OkHttp,
		cipherSuites: []uint16{
			0x1301, 0x1302, 0x1303, 0xc02b, 0xc02c, 0xcca9, 0xc02f, 0xc030,
			0xcca8, 0xc013, 0xc014, 0x009c, 0x009d, 0x002f, 0x0035,
		},
		extensions: []uint16{
			0, 23, 65281, 10, 11, 35, 16, 5, 13, 51, 45, 43, 21,
		},
		curves:       []uint16{29, 23, 24},
		pointFormats: []uint8{0},
		signatureAlgorithms: []uint16{
			0x0403, 0x0804, 0x0401, 0x0503, 0x0805, 0x0501, 0x0806, 0x0601,
			0x0201,
		},
	},
}

// weighted draw order; map iteration is random so keep it explicit.
var weightedProfiles = []Profile{
	ProfileChrome,
	ProfileFirefox,
	ProfileSafari,
	ProfileIOS,
	ProfileEdge,
	ProfileAndroid,
}

// HelloID returns a uTLS parrot for a profile.
func HelloID(p Profile) utls.ClientHelloID {
	if tpl, ok := templates[p]; ok {
		return tpl.helloID
	}

	return utls.HelloRandomized
}

// Profiles returns all concrete profiles.
func Profiles() []Profile {
	rv := make([]Profile, len(weightedProfiles))
	copy(rv, weightedProfiles)

	return rv
}
