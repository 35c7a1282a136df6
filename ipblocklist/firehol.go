package ipblocklist

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/akab00m/shroud/shroudlib"
	"github.com/panjf2000/ants/v2"
	"github.com/yl2chen/cidranger"
)

// FireholUpdateCallback is called after each successful update of a
// blocklist with a number of networks in it.
type FireholUpdateCallback func(ctx context.Context, size int)

type fireholSource interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

type fireholLocalSource string

func (f fireholLocalSource) Open(_ context.Context) (io.ReadCloser, error) {
	return os.Open(string(f)) //nolint: wrapcheck
}

func (f fireholLocalSource) String() string {
	return string(f)
}

type fireholRemoteSource struct {
	url        string
	httpClient *http.Client
}

func (f fireholRemoteSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot build a request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot download: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()

		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	return resp.Body, nil
}

func (f fireholRemoteSource) String() string {
	return f.url
}

type fireholTask struct {
	ctx    context.Context
	wg     *sync.WaitGroup
	source fireholSource
	ranger cidranger.Ranger
	mutex  *sync.Mutex
	errs   chan<- error
}

// Firehol is an IPBlocklist which uses lists from FireHOL:
// https://iplists.firehol.org/
//
// It can use both local files and remote URLs. Files are in netset
// format: one IP or CIDR per line, # starts a comment.
type Firehol struct {
	ctx            context.Context
	ctxCancel      context.CancelFunc
	logger         shroudlib.Logger
	updateCallback FireholUpdateCallback
	workerPool     *ants.PoolWithFunc
	sources        []fireholSource
	shutdownOnce   sync.Once

	rangerMutex sync.RWMutex
	ranger      cidranger.Ranger
}

// Contains is a method to check if IP is in a blocklist.
func (f *Firehol) Contains(ip net.IP) bool {
	if ip == nil {
		return false
	}

	f.rangerMutex.RLock()
	defer f.rangerMutex.RUnlock()

	if f.ranger == nil {
		return false
	}

	ok, err := f.ranger.Contains(ip)

	return err == nil && ok
}

// Size returns a number of networks in a blocklist.
func (f *Firehol) Size() int {
	f.rangerMutex.RLock()
	defer f.rangerMutex.RUnlock()

	if f.ranger == nil {
		return 0
	}

	return f.ranger.Len()
}

// Run starts a background update process. It blocks until Shutdown.
func (f *Firehol) Run(updateEach time.Duration) {
	if updateEach <= 0 {
		updateEach = DefaultFireholUpdateEach
	}

	ticker := time.NewTicker(updateEach)
	defer ticker.Stop()

	if err := f.update(); err != nil {
		f.logger.WarningError("cannot update blocklist", err)
	}

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			if err := f.update(); err != nil {
				f.logger.WarningError("cannot update blocklist", err)
			}
		}
	}
}

// Shutdown stops a blocklist.
func (f *Firehol) Shutdown() {
	f.shutdownOnce.Do(func() {
		f.ctxCancel()
		f.workerPool.Release()
	})
}

func (f *Firehol) update() error {
	ranger := cidranger.NewPCTrieRanger()
	wg := &sync.WaitGroup{}
	mutex := &sync.Mutex{}
	errs := make(chan error, len(f.sources))

	wg.Add(len(f.sources))

	for _, source := range f.sources {
		err := f.workerPool.Invoke(fireholTask{
			ctx:    f.ctx,
			wg:     wg,
			source: source,
			ranger: ranger,
			mutex:  mutex,
			errs:   errs,
		})
		if err != nil {
			wg.Done()

			errs <- fmt.Errorf("cannot schedule %s: %w", source, err)
		}
	}

	wg.Wait()
	close(errs)

	var failed []error

	for err := range errs {
		failed = append(failed, err)
	}

	if len(failed) > 0 && len(failed) == len(f.sources) {
		return fmt.Errorf("all blocklists have failed, keep previous one: %w", errors.Join(failed...))
	}

	for _, err := range failed {
		f.logger.WarningError("blocklist is skipped", err)
	}

	f.rangerMutex.Lock()
	f.ranger = ranger
	f.rangerMutex.Unlock()

	f.logger.BindInt("size", ranger.Len()).Info("blocklist was updated")

	if f.updateCallback != nil {
		f.updateCallback(f.ctx, ranger.Len())
	}

	return nil
}

func (f *Firehol) process(task fireholTask) {
	defer task.wg.Done()

	logger := f.logger.BindStr("source", task.source.String())

	reader, err := task.source.Open(task.ctx)
	if err != nil {
		task.errs <- fmt.Errorf("cannot open %s: %w", task.source, err)

		return
	}

	defer reader.Close()

	networks, err := parseFireholList(reader)
	if err != nil {
		task.errs <- fmt.Errorf("cannot parse %s: %w", task.source, err)

		return
	}

	task.mutex.Lock()
	defer task.mutex.Unlock()

	for _, v := range networks {
		if err := task.ranger.Insert(cidranger.NewBasicRangerEntry(*v)); err != nil {
			logger.BindStr("network", v.String()).WarningError("cannot insert network", err)
		}
	}

	logger.BindInt("networks", len(networks)).Debug("blocklist was parsed")
}

func parseFireholList(reader io.Reader) ([]*net.IPNet, error) {
	scanner := bufio.NewScanner(reader)
	rv := []*net.IPNet{}

	for scanner.Scan() {
		text := scanner.Text()

		if idx := strings.IndexByte(text, '#'); idx >= 0 {
			text = text[:idx]
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		ipnet, err := parseFireholLine(text)
		if err != nil {
			return nil, err
		}

		rv = append(rv, ipnet)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read a list: %w", err)
	}

	return rv, nil
}

func parseFireholLine(text string) (*net.IPNet, error) {
	if strings.Contains(text, "/") {
		_, ipnet, err := net.ParseCIDR(text)
		if err != nil {
			return nil, fmt.Errorf("incorrect cidr %s: %w", text, err)
		}

		return ipnet, nil
	}

	ip := net.ParseIP(text)
	if ip == nil {
		return nil, fmt.Errorf("incorrect ip %s", text)
	}

	if ipv4 := ip.To4(); ipv4 != nil {
		return &net.IPNet{
			IP:   ipv4,
			Mask: net.CIDRMask(fireholIPv4DefaultCIDR, fireholIPv4DefaultCIDR),
		}, nil
	}

	return &net.IPNet{
		IP:   ip,
		Mask: net.CIDRMask(fireholIPv6DefaultCIDR, fireholIPv6DefaultCIDR),
	}, nil
}

// NewFirehol creates a new instance of FireHOL blocklist.
//
// network is used to download remote lists, so downloads go through the
// same dialer and DNS-over-HTTPS resolver as everything else.
func NewFirehol(logger shroudlib.Logger, network shroudlib.Network,
	downloadConcurrency uint,
	urls []string,
	localFiles []string,
	updateCallback FireholUpdateCallback,
) (*Firehol, error) {
	if downloadConcurrency == 0 {
		downloadConcurrency = DefaultFireholDownloadConcurrency
	}

	sources := make([]fireholSource, 0, len(urls)+len(localFiles))

	for _, v := range localFiles {
		if stat, err := os.Stat(v); err != nil || stat.IsDir() {
			return nil, fmt.Errorf("incorrect local file %s", v)
		}

		sources = append(sources, fireholLocalSource(v))
	}

	if len(urls) > 0 {
		httpClient := network.MakeHTTPClient(nil)

		for _, v := range urls {
			parsed, err := url.Parse(v)
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
				return nil, fmt.Errorf("incorrect url %s", v)
			}

			sources = append(sources, fireholRemoteSource{
				url:        v,
				httpClient: httpClient,
			})
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	rv := &Firehol{
		ctx:            ctx,
		ctxCancel:      cancel,
		logger:         logger.Named("firehol"),
		updateCallback: updateCallback,
		sources:        sources,
	}

	pool, err := ants.NewPoolWithFunc(int(downloadConcurrency),
		func(arg interface{}) {
			rv.process(arg.(fireholTask)) //nolint: forcetypeassert
		},
		ants.WithLogger(rv.logger.Named("ants")))
	if err != nil {
		cancel()

		return nil, fmt.Errorf("cannot create a worker pool: %w", err)
	}

	rv.workerPool = pool

	return rv, nil
}

var _ shroudlib.IPBlocklist = (*Firehol)(nil)
