package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

type QbtCmdTestSuite struct {
	suite.Suite
	tempDir string
}

func (suite *QbtCmdTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
}

func (suite *QbtCmdTestSuite) runSchema() {
	cmd := schemaCommand()
	err := cmd.Run(context.Background(), []string{"schema", "--out", filepath.Join(suite.tempDir, "config")})
	suite.Require().NoError(err)
}

func (suite *QbtCmdTestSuite) TestSchemaGeneration() {
	suite.runSchema()

	schemaContent, err := os.ReadFile(filepath.Join(suite.tempDir, "config", "backtest-config.json"))
	suite.Require().NoError(err)
	suite.NotEmpty(schemaContent)
	suite.Contains(string(schemaContent), "initial_cash")
	suite.Contains(string(schemaContent), "symbols")
}

func (suite *QbtCmdTestSuite) TestSampleGeneration() {
	suite.runSchema()

	samplePath := filepath.Join(suite.tempDir, "config", "backtest-sample.yaml")
	sampleContent, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)
	suite.Contains(string(sampleContent), "# yaml-language-server: $schema=backtest-config.json")
	suite.Contains(string(sampleContent), "buy_and_hold")

	// The sample doubles as a valid definition file.
	definition, err := readDefinition(samplePath)
	suite.Require().NoError(err)
	suite.Equal("sample-buy-and-hold", definition.Name)
	suite.Require().NoError(definition.Config.Validate())
}

func (suite *QbtCmdTestSuite) TestSampleNotOverwritten() {
	suite.runSchema()

	samplePath := filepath.Join(suite.tempDir, "config", "backtest-sample.yaml")
	custom := []byte("name: edited\n")
	suite.Require().NoError(os.WriteFile(samplePath, custom, 0644))

	suite.runSchema()

	content, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)
	suite.Equal(string(custom), string(content))
}

func (suite *QbtCmdTestSuite) TestReadDefinitionMissingFile() {
	_, err := readDefinition(filepath.Join(suite.tempDir, "missing.yaml"))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingConfiguration))
}

func (suite *QbtCmdTestSuite) TestReadDefinitionInvalidYaml() {
	path := filepath.Join(suite.tempDir, "broken.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte("name: [broken"), 0644))

	_, err := readDefinition(path)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfig))
}

func (suite *QbtCmdTestSuite) TestReadDefinitionMissingName() {
	path := filepath.Join(suite.tempDir, "unnamed.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte("description: no name here\n"), 0644))

	_, err := readDefinition(path)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfig))
}

func (suite *QbtCmdTestSuite) TestRootCommandConfigFlag() {
	// The global --config flag must parse ahead of any subcommand.
	outDir := filepath.Join(suite.tempDir, "config")
	err := rootCommand().Run(context.Background(),
		[]string{"qbt", "--config", filepath.Join(suite.tempDir, "app.yaml"), "schema", "--out", outDir})
	suite.Require().NoError(err)

	_, err = os.Stat(filepath.Join(outDir, "backtest-config.json"))
	suite.Require().NoError(err)
}

func (suite *QbtCmdTestSuite) TestSplitSymbols() {
	suite.Equal([]string{"AAPL", "MSFT"}, splitSymbols("AAPL, MSFT"))
	suite.Equal([]string{"BTCUSDT"}, splitSymbols(" BTCUSDT "))
	suite.Empty(splitSymbols(",, ,"))
}

func TestQbtCmdSuite(t *testing.T) {
	suite.Run(t, new(QbtCmdTestSuite))
}
