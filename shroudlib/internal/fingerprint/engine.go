package fingerprint

import (
	"math/rand"
	"sync"
	"time"

	"github.com/akab00m/shroud/shroudlib/internal/tlshello"
)

const (
	DefaultRotationInterval   = 120 * time.Second
	DefaultReorderProbability = 0.25
)

// Opts configures an Engine. Zero values mean defaults.
type Opts struct {
	// RotationInterval defines how long Rotating returns the same
	// fingerprint.
	RotationInterval time.Duration

	// ReorderProbability is a chance to swap each adjacent pair of
	// non-mandatory cipher suites. Negative disables reordering.
	ReorderProbability float64

	// Blacklist is a list of forbidden JA3 hashes. Nil means
	// DefaultBlacklist.
	Blacklist []string

	// Seed fixes randomness of profile draws and reordering. 0 means a
	// time-based seed.
	Seed int64

	// Now is a clock. Nil means time.Now.
	Now func() time.Time
}

// Engine produces fingerprints. It is safe for concurrent use.
type Engine struct {
	mutex sync.Mutex
	rnd   *rand.Rand

	rotationInterval   time.Duration
	reorderProbability float64
	blacklist          map[string]struct{}
	now                func() time.Time

	cached     Fingerprint
	cachedH2   bool
	cachedAt   time.Time
	haveCached bool
}

// Random draws a weighted profile and returns a fingerprint for it.
func (e *Engine) Random(preferH2 bool) Fingerprint {
	return e.ForProfile(ProfileRandom, preferH2)
}

// ForProfile returns a fingerprint for a profile. ProfileRandom means a
// weighted draw.
func (e *Engine) ForProfile(profile Profile, preferH2 bool) Fingerprint {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.generate(profile, preferH2)
}

// Rotating returns a cached fingerprint which is regenerated after the
// rotation interval.
func (e *Engine) Rotating(preferH2 bool) Fingerprint {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	now := e.now()

	if e.haveCached && e.cachedH2 == preferH2 && now.Sub(e.cachedAt) < e.rotationInterval {
		return e.cached.Clone()
	}

	e.cached = e.generate(ProfileRandom, preferH2)
	e.cachedH2 = preferH2
	e.cachedAt = now
	e.haveCached = true

	return e.cached.Clone()
}

// IsBlacklisted checks a JA3 hash against the engine blacklist.
func (e *Engine) IsBlacklisted(ja3 string) bool {
	_, ok := e.blacklist[ja3]

	return ok
}

func (e *Engine) generate(profile Profile, preferH2 bool) Fingerprint {
	if _, ok := templates[profile]; !ok {
		profile = e.drawProfile()
	}

	tpl := templates[profile]
	fp := Fingerprint{
		Profile:             profile,
		TLSVersion:          tlshello.VersionTLS12,
		CipherSuites:        append([]uint16(nil), tpl.cipherSuites...),
		Extensions:          append([]uint16(nil), tpl.extensions...),
		EllipticCurves:      append([]uint16(nil), tpl.curves...),
		ECPointFormats:      append([]uint8(nil), tpl.pointFormats...),
		SignatureAlgorithms: append([]uint16(nil), tpl.signatureAlgorithms...),
		EngineTag:           tpl.engineTag,
		ALPN:                e.alpn(preferH2),
	}

	e.reorder(fp.CipherSuites)
	fp.Rehash()
	e.avoidBlacklist(&fp)

	return fp
}

func (e *Engine) drawProfile() Profile {
	total := 0
	for _, p := range weightedProfiles {
		total += templates[p].weight
	}

	pick := e.rnd.Intn(total)

	for _, p := range weightedProfiles {
		pick -= templates[p].weight
		if pick < 0 {
			return p
		}
	}

	return ProfileChrome
}

func (e *Engine) alpn(preferH2 bool) []string {
	if preferH2 || e.rnd.Intn(2) == 0 {
		return []string{"h2", "http/1.1"}
	}

	return []string{"http/1.1"}
}

func (e *Engine) reorder(suites []uint16) {
	if e.reorderProbability <= 0 {
		return
	}

	for i := len(mandatoryCipherSuites); i+1 < len(suites); i++ {
		if e.rnd.Float64() < e.reorderProbability {
			suites[i], suites[i+1] = suites[i+1], suites[i]
			i++
		}
	}
}

// avoidBlacklist swaps adjacent non-mandatory suites, pair by pair, until
// the hash leaves the blacklist.
func (e *Engine) avoidBlacklist(fp *Fingerprint) {
	for i := len(mandatoryCipherSuites); i+1 < len(fp.CipherSuites); i++ {
		if !e.IsBlacklisted(fp.JA3Hash) {
			return
		}

		fp.CipherSuites[i], fp.CipherSuites[i+1] = fp.CipherSuites[i+1], fp.CipherSuites[i]
		fp.Rehash()
	}
}

// NewEngine builds a new fingerprint engine.
func NewEngine(opts Opts) *Engine {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	interval := opts.RotationInterval
	if interval <= 0 {
		interval = DefaultRotationInterval
	}

	probability := opts.ReorderProbability
	if probability == 0 {
		probability = DefaultReorderProbability
	}

	hashes := opts.Blacklist
	if hashes == nil {
		hashes = DefaultBlacklist
	}

	blacklist := make(map[string]struct{}, len(hashes))
	for _, v := range hashes {
		blacklist[v] = struct{}{}
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		rnd:                rand.New(rand.NewSource(seed)), //nolint: gosec
		rotationInterval:   interval,
		reorderProbability: probability,
		blacklist:          blacklist,
		now:                now,
	}
}
