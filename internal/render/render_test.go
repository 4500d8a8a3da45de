package render

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/qerr"
	"github.com/roach88/huntql/internal/queryast"
)

var s1Filters = map[string][]string{
	"processes":       {"PROCESSCREATION"},
	"network_actions": {"IP CONNECT", "IP LISTEN"},
}

func str(field string, op queryast.Operator, v string) queryast.Predicate {
	return queryast.Predicate{Field: field, Operator: op, Value: ir.IRString(v), Type: ir.FieldString}
}

func num(field string, op queryast.Operator, v ir.IRValue) queryast.Predicate {
	return queryast.Predicate{Field: field, Operator: op, Value: v, Type: ir.FieldNumber}
}

// snapshot formats a result for golden comparison: the query, then sorted
// params after a "--" separator.
func snapshot(r Result) []byte {
	var b strings.Builder
	b.WriteString(r.Query)
	if len(r.Params) > 0 {
		keys := make([]string, 0, len(r.Params))
		for k := range r.Params {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		b.WriteString("\n--")
		for _, k := range keys {
			b.WriteString("\n" + k + "=" + r.Params[k])
		}
	}
	return []byte(b.String())
}

func TestRender_Golden(t *testing.T) {
	tests := []struct {
		name     string
		renderer Renderer
		ast      queryast.AST
	}{
		{
			name:     "kql_and",
			renderer: KQL{},
			ast: queryast.AST{
				Platform: ir.PlatformKQL,
				Dataset:  "DeviceProcessEvents",
				Fields:   []string{"Timestamp", "DeviceName", "ProcessCommandLine"},
				Predicates: []queryast.Predicate{
					str("FileName", queryast.OpIEq, "powershell.exe"),
					str("ProcessCommandLine", queryast.OpContains, "-enc"),
				},
				TimeField:  "Timestamp",
				TimeWindow: 24 * time.Hour,
				Sort:       &queryast.SortKey{Field: "Timestamp", Descending: true},
				Limit:      100,
			},
		},
		{
			name:     "kql_or_in",
			renderer: KQL{},
			ast: queryast.AST{
				Platform: ir.PlatformKQL,
				Dataset:  "DeviceNetworkEvents",
				Predicates: []queryast.Predicate{
					num("RemotePort", queryast.OpIn, ir.IRArray{ir.IRInt(443), ir.IRInt(8443)}),
					str("RemoteUrl", queryast.OpEndsWith, ".onion"),
				},
				Mode:       queryast.ModeOr,
				TimeField:  "Timestamp",
				TimeWindow: 36 * time.Hour,
				Limit:      50,
			},
		},
		{
			name:     "cbc_and",
			renderer: CBC{},
			ast: queryast.AST{
				Platform: ir.PlatformCBC,
				Dataset:  "process",
				Fields:   []string{"device_name", "process_name"},
				Predicates: []queryast.Predicate{
					str("process_name", queryast.OpEq, "powershell.exe"),
					str("device_os", queryast.OpNe, "MAC"),
					str("process_cmdline", queryast.OpContains, "-enc"),
				},
				TimeWindow: 7 * 24 * time.Hour,
				Sort:       &queryast.SortKey{Field: "device_timestamp", Descending: true},
				Limit:      100,
			},
		},
		{
			name:     "cbc_or_ranges",
			renderer: CBC{},
			ast: queryast.AST{
				Platform: ir.PlatformCBC,
				Dataset:  "process",
				Predicates: []queryast.Predicate{
					num("process_pid", queryast.OpGe, ir.IRInt(4)),
					{Field: "process_name", Operator: queryast.OpIn, Value: ir.Strings("cmd.exe", "my tool.exe"), Type: ir.FieldString},
				},
				Mode:  queryast.ModeOr,
				Limit: 10,
			},
		},
		{
			name:     "xql_and",
			renderer: XQL{},
			ast: queryast.AST{
				Platform: ir.PlatformCortex,
				Dataset:  "xdr_data",
				Fields:   []string{"_time", "agent_hostname"},
				Predicates: []queryast.Predicate{
					{Field: "event_type", Operator: queryast.OpEq, Value: ir.IRString("ENUM.PROCESS"), Type: ir.FieldEnum},
					str("action_process_image_name", queryast.OpIEq, "PowerShell.exe"),
					str("action_process_image_path", queryast.OpEndsWith, ".ps1"),
				},
				TimeField:  "_time",
				TimeWindow: 24 * time.Hour,
				Sort:       &queryast.SortKey{Field: "_time", Descending: true},
				Limit:      100,
			},
		},
		{
			name:     "xql_or_hours",
			renderer: XQL{},
			ast: queryast.AST{
				Platform: ir.PlatformCortex,
				Dataset:  "xdr_data",
				Predicates: []queryast.Predicate{
					num("action_remote_port", queryast.OpIn, ir.IRArray{ir.IRInt(4444), ir.IRInt(1337)}),
					str("dst_action_external_hostname", queryast.OpContains, "pastebin"),
				},
				Mode:       queryast.ModeOr,
				TimeField:  "_time",
				TimeWindow: time.Hour,
				Limit:      20,
			},
		},
		{
			name:     "s1_and",
			renderer: S1QL{EventFilters: s1Filters},
			ast: queryast.AST{
				Platform: ir.PlatformS1,
				Dataset:  "processes",
				Fields:   []string{"src.process.name", "endpoint.name"},
				Predicates: []queryast.Predicate{
					str("src.process.name", queryast.OpIEq, "cmd.exe"),
					str("src.process.cmdline", queryast.OpContains, "whoami"),
				},
				TimeWindow: 24 * time.Hour,
				Limit:      100,
			},
		},
		{
			name:     "s1_or",
			renderer: S1QL{EventFilters: s1Filters},
			ast: queryast.AST{
				Platform: ir.PlatformS1,
				Dataset:  "network_actions",
				Predicates: []queryast.Predicate{
					num("dst.port.number", queryast.OpEq, ir.IRInt(4444)),
					{Field: "dst.ip.address", Operator: queryast.OpIn, Value: ir.Strings("10.0.0.1", "10.0.0.2"), Type: ir.FieldIP},
				},
				Mode:       queryast.ModeOr,
				TimeWindow: 48 * time.Hour,
				Limit:      50,
			},
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.ast.Platform, tt.renderer.Platform())

			res, err := tt.renderer.Render(tt.ast)

			require.NoError(t, err)
			g.Assert(t, tt.name, snapshot(res))
		})
	}
}

func TestRender_Deterministic(t *testing.T) {
	a := queryast.AST{
		Platform:   ir.PlatformS1,
		Dataset:    "processes",
		Fields:     []string{"src.process.name"},
		Predicates: []queryast.Predicate{str("src.process.name", queryast.OpEq, "cmd.exe")},
		TimeWindow: 24 * time.Hour,
		Sort:       &queryast.SortKey{Field: "src.process.name"},
		Limit:      10,
	}
	renderers := []Renderer{KQL{}, CBC{}, XQL{}, S1QL{EventFilters: s1Filters}}

	for _, r := range renderers {
		t.Run(string(r.Platform()), func(t *testing.T) {
			first, err := r.Render(a)
			require.NoError(t, err)
			for range 20 {
				again, err := r.Render(a)
				require.NoError(t, err)
				assert.Equal(t, first, again)
			}
		})
	}
}

func TestRender_ErrorsReturnNoQuery(t *testing.T) {
	tests := []struct {
		name     string
		renderer Renderer
		ast      queryast.AST
		wantErr  string
	}{
		{
			name:     "cbc regex",
			renderer: CBC{},
			ast: queryast.AST{Dataset: "process", Limit: 10, Predicates: []queryast.Predicate{
				str("process_name", queryast.OpMatches, "^cmd"),
			}},
			wantErr: "operator matches is not supported",
		},
		{
			name:     "cbc without filters",
			renderer: CBC{},
			ast:      queryast.AST{Dataset: "process", Limit: 10},
			wantErr:  "at least one filter",
		},
		{
			name:     "s1 without filters or event type",
			renderer: S1QL{},
			ast:      queryast.AST{Dataset: "dns", Limit: 10},
			wantErr:  "no event filter",
		},
		{
			name:     "kql fractional hours",
			renderer: KQL{},
			ast:      queryast.AST{Dataset: "DeviceProcessEvents", TimeField: "Timestamp", TimeWindow: 90 * time.Minute, Limit: 10},
			wantErr:  "whole number of hours",
		},
		{
			name:     "xql fractional hours",
			renderer: XQL{},
			ast:      queryast.AST{Dataset: "xdr_data", TimeField: "_time", TimeWindow: 30 * time.Minute, Limit: 10},
			wantErr:  "whole number of hours",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.renderer.Render(tt.ast)

			require.Error(t, err)
			assert.Equal(t, qerr.KindQueryBuild, qerr.KindOf(err))
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, Result{}, res)
		})
	}
}

func TestKQL_Escaping(t *testing.T) {
	a := queryast.AST{
		Dataset: "DeviceProcessEvents",
		Limit:   1,
		Predicates: []queryast.Predicate{
			str("ProcessCommandLine", queryast.OpContains, "say \"hi\"\n\\x"),
			{Field: "Timestamp", Operator: queryast.OpGt, Value: ir.IRString("2024-01-01T00:00:00Z"), Type: ir.FieldTimestamp},
			str("FileName", queryast.OpMatches, `^c.d\.exe$`),
		},
	}

	res, err := KQL{}.Render(a)

	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"DeviceProcessEvents",
		`| where ProcessCommandLine contains "say \"hi\"\n\\x"`,
		"| where Timestamp > datetime(2024-01-01T00:00:00Z)",
		`| where FileName matches regex "^c.d\\.exe$"`,
		"| take 1",
	}, "\n"), res.Query)
}

func TestKQL_TimestampOutsideDateAlphabetIsQuoted(t *testing.T) {
	a := queryast.AST{
		Dataset: "DeviceProcessEvents",
		Limit:   1,
		Predicates: []queryast.Predicate{
			{Field: "Timestamp", Operator: queryast.OpGt, Value: ir.IRString("2024-01-01) | project-away DeviceName"), Type: ir.FieldTimestamp},
		},
	}

	res, err := KQL{}.Render(a)

	require.NoError(t, err)
	assert.Contains(t, res.Query, `| where Timestamp > datetime("2024-01-01) | project-away DeviceName")`)
}

func TestKQL_NoTimeFieldSkipsWindow(t *testing.T) {
	res, err := KQL{}.Render(queryast.AST{Dataset: "DeviceProcessEvents", TimeWindow: time.Hour, Limit: 5})

	require.NoError(t, err)
	assert.Equal(t, "DeviceProcessEvents\n| take 5", res.Query)
}

func TestCBC_Escaping(t *testing.T) {
	tests := []struct {
		pred queryast.Predicate
		want string
	}{
		{str("process_name", queryast.OpEq, "a:b"), `process_name:a\:b`},
		{str("process_name", queryast.OpEq, `my "tool"`), `process_name:"my \"tool\""`},
		{str("process_cmdline", queryast.OpContains, "a b"), `process_cmdline:*a\ b*`},
		{str("process_name", queryast.OpStartsWith, "power"), `process_name:power*`},
		{str("process_name", queryast.OpEndsWith, ".ps1"), `process_name:*.ps1`},
		{num("process_pid", queryast.OpLt, ir.IRInt(100)), `process_pid:[* TO 100}`},
		{num("process_pid", queryast.OpGt, ir.IRInt(100)), `process_pid:{100 TO *]`},
		{str("process_name", queryast.OpIn, ""), `process_name:""`},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			res, err := CBC{}.Render(queryast.AST{Dataset: "process", Limit: 1, Predicates: []queryast.Predicate{tt.pred}})

			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Query)
		})
	}
}

func TestXQL_Literals(t *testing.T) {
	tests := []struct {
		pred queryast.Predicate
		want string
	}{
		{str("agent_hostname", queryast.OpEq, "o'brien"), `agent_hostname = 'o\'brien'`},
		{str("event_type", queryast.OpEq, "ENUM.PROCESS"), `event_type = ENUM.PROCESS`},
		{str("agent_hostname", queryast.OpEq, "ENUM.not enum"), `agent_hostname = 'ENUM.not enum'`},
		{str("agent_hostname", queryast.OpNe, "dc01"), `agent_hostname != 'dc01'`},
		{str("action_process_image_name", queryast.OpStartsWith, "a.b"), `action_process_image_name ~= '^a\\.b'`},
		{str("action_process_image_name", queryast.OpMatches, "^cmd"), `action_process_image_name ~= '^cmd'`},
		{num("action_remote_port", queryast.OpLe, ir.IRInt(1024)), `action_remote_port <= 1024`},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			res, err := XQL{}.Render(queryast.AST{Dataset: "xdr_data", Limit: 1, Predicates: []queryast.Predicate{tt.pred}})

			require.NoError(t, err)
			assert.Equal(t, "dataset = xdr_data\n| filter "+tt.want+"\n| limit 1", res.Query)
		})
	}
}

func TestS1QL_WithoutEventFilter(t *testing.T) {
	r := S1QL{EventFilters: s1Filters}
	a := queryast.AST{
		Dataset: "dns",
		Mode:    queryast.ModeOr,
		Limit:   5,
		Predicates: []queryast.Predicate{
			str("event.dns.request", queryast.OpContains, "evil"),
			str("event.dns.request", queryast.OpStartsWith, "x.y"),
		},
	}

	res, err := r.Render(a)

	require.NoError(t, err)
	assert.Equal(t, `event.dns.request contains:anycase 'evil' OR event.dns.request matches '^x\\.y'`, res.Query)
	assert.Equal(t, map[string]string{ParamDataset: "dns", ParamLimit: "5"}, res.Params)
}
