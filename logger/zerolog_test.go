package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/akab00m/shroud/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
)

type ZeroLoggerTestSuite struct {
	suite.Suite

	buf *bytes.Buffer
}

func (suite *ZeroLoggerTestSuite) SetupTest() {
	suite.buf = &bytes.Buffer{}
}

func (suite *ZeroLoggerTestSuite) decode() map[string]interface{} {
	data := map[string]interface{}{}

	suite.NoError(json.Unmarshal(suite.buf.Bytes(), &data))

	return data
}

func (suite *ZeroLoggerTestSuite) TestNamedChain() {
	log := logger.NewZeroLogger(zerolog.New(suite.buf))

	log.Named("orchestrator").Named("detect").Info("hello")

	data := suite.decode()

	suite.Equal("orchestrator.detect", data["logger"])
	suite.Equal("hello", data["message"])
	suite.Equal("info", data["level"])
}

func (suite *ZeroLoggerTestSuite) TestBind() {
	log := logger.NewZeroLogger(zerolog.New(suite.buf))

	log.BindStr("ip", "abc").BindInt("port", 443).WarningError("oops", errors.New("boom"))

	data := suite.decode()

	suite.Equal("abc", data["ip"])
	suite.EqualValues(443, data["port"])
	suite.Equal("boom", data["error"])
	suite.Equal("warn", data["level"])
}

func (suite *ZeroLoggerTestSuite) TestDebugFiltered() {
	log := logger.NewZeroLogger(zerolog.New(suite.buf).Level(zerolog.InfoLevel))

	log.Debug("hidden")
	log.Printf("hidden %d", 1)

	suite.Empty(suite.buf.Bytes())
}

func TestZeroLogger(t *testing.T) {
	t.Parallel()
	suite.Run(t, &ZeroLoggerTestSuite{})
}
