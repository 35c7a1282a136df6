package testlib

import (
	"context"
	"net/http"

	"github.com/akab00m/shroud/essentials"
	"github.com/stretchr/testify/mock"
)

type ShroudlibNetworkMock struct {
	mock.Mock
}

func (m *ShroudlibNetworkMock) Dial(network, address string) (essentials.Conn, error) {
	args := m.Called(network, address)

	if conn, ok := args.Get(0).(essentials.Conn); ok {
		return conn, args.Error(1) //nolint: wrapcheck
	}

	return nil, args.Error(1) //nolint: wrapcheck
}

func (m *ShroudlibNetworkMock) DialContext(ctx context.Context, network, address string) (essentials.Conn, error) {
	args := m.Called(ctx, network, address)

	if conn, ok := args.Get(0).(essentials.Conn); ok {
		return conn, args.Error(1) //nolint: wrapcheck
	}

	return nil, args.Error(1) //nolint: wrapcheck
}

func (m *ShroudlibNetworkMock) MakeHTTPClient(dialFunc func(ctx context.Context,
	network, address string) (essentials.Conn, error),
) *http.Client {
	return m.Called(dialFunc).Get(0).(*http.Client) //nolint: forcetypeassert
}
