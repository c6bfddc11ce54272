// Command akuquery drives a query chain description against a
// newline-delimited JSON sample log and prints whatever the chain's
// terminal sink collects. It exists as a golden-file driver for the
// integration test suite.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/akumuli/queryproc"
	"github.com/akumuli/queryproc/config"
	"github.com/davecgh/go-spew/spew"
	"github.com/influxdata/wlog"
	"github.com/mitchellh/mapstructure"
)

// sampleRecord is the decode target for one line of the sample log. The
// log is hand-written/golden-file JSON, so fields may arrive as either
// numbers or numeric strings; mapstructure's weakly-typed decoding
// absorbs that without a bespoke parser.
type sampleRecord struct {
	ID    uint64  `mapstructure:"id"`
	TS    uint64  `mapstructure:"ts"`
	Value float64 `mapstructure:"value"`
	Blob  string  `mapstructure:"blob"`
	IsEnd bool    `mapstructure:"end"`
}

func decodeRecord(raw map[string]interface{}) (sampleRecord, error) {
	var rec sampleRecord
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &rec,
	})
	if err != nil {
		return rec, err
	}
	if err := dec.Decode(raw); err != nil {
		return rec, err
	}
	return rec, nil
}

func toSample(rec sampleRecord) queryproc.Sample {
	if rec.IsEnd {
		return queryproc.EmptySample(rec.TS)
	}
	if rec.Blob != "" {
		return queryproc.Sample{
			ParamID:   rec.ID,
			Timestamp: rec.TS,
			Payload: queryproc.Payload{
				Flags: queryproc.FlagParamID | queryproc.FlagBlob,
				Blob:  []byte(rec.Blob),
			},
		}
	}
	return queryproc.FloatSample(rec.ID, rec.TS, rec.Value)
}

// groupByWidthUnset is the sentinel -group-by-width value meaning "not
// passed on the command line"; 0 remains a valid, explicit "disable
// bucketing" request and must not be confused with it.
const groupByWidthUnset = -1

func run(chainPath, samplesPath, configPath string, begin, end uint64, groupByWidth int64, verbose bool, logger *log.Logger) error {
	cfg := config.Default()
	if configPath != "" {
		c, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}

	builder := queryproc.NewBuilder(&cfg, logger, 42)

	width := uint64(groupByWidth)
	if groupByWidth == groupByWidthUnset {
		w, err := builder.DefaultGroupByWidth(time.Nanosecond)
		if err != nil {
			return fmt.Errorf("resolve default group-by width: %w", err)
		}
		width = w
	}

	chainData, err := os.ReadFile(chainPath)
	if err != nil {
		return fmt.Errorf("read chain description: %w", err)
	}

	var descs []json.RawMessage
	if err := json.Unmarshal(chainData, &descs); err != nil {
		return fmt.Errorf("parse chain description: %w", err)
	}

	sink := queryproc.NewCollectorSink()

	var chain queryproc.Node = sink
	for i := len(descs) - 1; i >= 0; i-- {
		node, err := builder.Build(descs[i], chain)
		if err != nil {
			return fmt.Errorf("build node %d: %w", i, err)
		}
		chain = node
	}

	proc := queryproc.NewScanQueryProcessor(chain, nil, begin, end, queryproc.NewGroupByTime(width), logger)

	f, err := os.Open(samplesPath)
	if err != nil {
		return fmt.Errorf("open sample log: %w", err)
	}
	defer f.Close()

	if !proc.Start() {
		return fmt.Errorf("query processor rejected start")
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw map[string]interface{}
		if err := json.Unmarshal(line, &raw); err != nil {
			return fmt.Errorf("parse sample line: %w", err)
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			return fmt.Errorf("decode sample line: %w", err)
		}
		if !proc.Put(toSample(rec)) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan sample log: %w", err)
	}
	proc.Stop()

	enc := json.NewEncoder(os.Stdout)
	for _, s := range sink.Samples() {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode result sample: %w", err)
		}
	}

	if st := sink.Status(); st.Code != queryproc.StatusOK {
		fmt.Fprintf(os.Stderr, "E! query finished with error status: %s\n", st)
	}

	if verbose {
		dumpStats(chain)
	}
	return nil
}

// dumpStats spew-dumps the stats of the chain's head node, if it exposes
// any, for -v debugging of a golden-file run. Nodes further down the
// chain are not dumped.
func dumpStats(n queryproc.Node) {
	type statser interface {
		Stats() map[string]interface{}
	}
	if s, ok := n.(statser); ok {
		fmt.Fprintf(os.Stderr, "D! %s stats:\n", n.Type())
		spew.Fdump(os.Stderr, s.Stats())
	}
}

func main() {
	var (
		chainPath    = flag.String("chain", "", "path to the JSON chain description")
		samplesPath  = flag.String("samples", "", "path to the newline-delimited JSON sample log")
		configPath   = flag.String("config", "", "path to a TOML config file (optional)")
		begin        = flag.Uint64("begin", 0, "query lower timestamp bound")
		end          = flag.Uint64("end", ^uint64(0), "query upper timestamp bound")
		groupByWidth = flag.Int64("group-by-width", groupByWidthUnset, "bucket width in nanoseconds; 0 disables bucketing, omit to use the configured default")
		verbose      = flag.Bool("v", false, "dump the head node's execution statistics to stderr")
		logLevel     = flag.String("log-level", "info", "log level: debug, info, error")
	)
	flag.Parse()

	if *chainPath == "" || *samplesPath == "" {
		fmt.Fprintln(os.Stderr, "usage: akuquery -chain chain.json -samples samples.ndjson")
		os.Exit(2)
	}

	if err := wlog.SetLevelFromName(*logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "W! %s, defaulting to info\n", err)
	}
	logger := wlog.New(os.Stderr, "[akuquery] ", log.LstdFlags)

	if err := run(*chainPath, *samplesPath, *configPath, *begin, *end, *groupByWidth, *verbose, logger); err != nil {
		logger.Printf("E! %s", err)
		os.Exit(1)
	}
}
