package platform

import (
	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/queryast"
	"github.com/roach88/huntql/internal/render"
)

// Default limits. Max limits mirror each vendor's API ceiling.
const (
	DefaultLimit   = 100
	MaxLimitKQL    = 10000
	MaxLimitCBC    = 5000
	MaxLimitCortex = 10000
	MaxLimitS1     = 10000
)

// S1EventFilters maps S1 datasets to the Deep Visibility event types they
// cover.
var S1EventFilters = map[string][]string{
	"processes":       {"PROCESSCREATION"},
	"network_actions": {"IP CONNECT", "IP LISTEN"},
	"files":           {"FILE CREATION", "FILE MODIFICATION", "FILE DELETION", "FILE RENAME"},
	"dns":             {"DNS RESOLVED", "DNS UNRESOLVED"},
	"logins":          {"LOGIN", "LOGOUT"},
}

// KQL returns the Microsoft Defender Advanced Hunting platform.
func KQL(opts ...Option) Platform {
	return newDialect(&dialect{
		id:       ir.PlatformKQL,
		renderer: render.KQL{},
		labels:   docLabels{dataset: "Table", dialect: "KQL"},
		profile: Profile{
			DefaultDataset: "DeviceProcessEvents",
			DefaultLimit:   DefaultLimit,
			MaxLimit:       MaxLimitKQL,
			TimeField:      "Timestamp",
			TextOperator:   queryast.OpIEq,
			IOCFields: map[IOCKind][]string{
				IOCMD5:     {"MD5", "InitiatingProcessMD5"},
				IOCSHA1:    {"SHA1", "InitiatingProcessSHA1"},
				IOCSHA256:  {"SHA256", "InitiatingProcessSHA256"},
				IOCIPv4:    {"RemoteIP", "LocalIP"},
				IOCIPv6:    {"RemoteIP", "LocalIP"},
				IOCProcess: {"FileName", "InitiatingProcessFileName"},
				IOCHost:    {"DeviceName"},
				IOCUser:    {"AccountName", "InitiatingProcessAccountName"},
				IOCDomain:  {"RemoteUrl"},
				IOCPort:    {"RemotePort", "LocalPort"},

				IOCCommandLine: {"ProcessCommandLine", "InitiatingProcessCommandLine"},
				IOCPath:        {"FolderPath", "InitiatingProcessFolderPath"},
			},
			Keywords: []Keyword{
				{"registry", "DeviceRegistryEvents"},
				{"logon", "DeviceLogonEvents"},
				{"login", "DeviceLogonEvents"},
				{"network", "DeviceNetworkEvents"},
				{"connection", "DeviceNetworkEvents"},
				{"connections", "DeviceNetworkEvents"},
				{"file", "DeviceFileEvents"},
				{"files", "DeviceFileEvents"},
				{"process", "DeviceProcessEvents"},
				{"processes", "DeviceProcessEvents"},
			},
		},
	}, opts)
}

// CBC returns the Carbon Black Cloud platform.
func CBC(opts ...Option) Platform {
	return newDialect(&dialect{
		id:       ir.PlatformCBC,
		renderer: render.CBC{},
		labels:   docLabels{dataset: "Search type", dialect: "CBC"},
		profile: Profile{
			DefaultDataset: "process",
			DefaultLimit:   DefaultLimit,
			MaxLimit:       MaxLimitCBC,
			TextOperator:   queryast.OpEq,
			IOCFields: map[IOCKind][]string{
				IOCMD5:     {"process_hash", "md5"},
				IOCSHA256:  {"process_hash", "sha256"},
				IOCIPv4:    {"netconn_ipv4"},
				IOCIPv6:    {"netconn_ipv6"},
				IOCProcess: {"process_name", "original_filename"},
				IOCHost:    {"device_name"},
				IOCUser:    {"process_username"},
				IOCDomain:  {"netconn_domain"},
				IOCPort:    {"netconn_port"},

				IOCCommandLine: {"process_cmdline"},
				IOCPath:        {"filemod_name", "process_name"},
			},
			Keywords: []Keyword{
				{"alert", "alert"},
				{"alerts", "alert"},
				{"binary", "binary"},
				{"binaries", "binary"},
				{"process", "process"},
				{"processes", "process"},
			},
		},
	}, opts)
}

// Cortex returns the Cortex XDR platform.
func Cortex(opts ...Option) Platform {
	return newDialect(&dialect{
		id:       ir.PlatformCortex,
		renderer: render.XQL{},
		labels:   docLabels{dataset: "Dataset", dialect: "XQL"},
		profile: Profile{
			DefaultDataset: "xdr_data",
			DefaultLimit:   DefaultLimit,
			MaxLimit:       MaxLimitCortex,
			TimeField:      "_time",
			TextOperator:   queryast.OpEq,
			IOCFields: map[IOCKind][]string{
				IOCMD5:     {"action_file_md5", "action_process_image_md5"},
				IOCSHA256:  {"action_file_sha256", "action_process_image_sha256"},
				IOCIPv4:    {"action_remote_ip", "dst_ip", "ip_address"},
				IOCIPv6:    {"action_remote_ipv6", "action_remote_ip", "dst_ip"},
				IOCProcess: {"action_process_image_name", "actor_process_image_name"},
				IOCHost:    {"agent_hostname", "endpoint_name"},
				IOCUser:    {"actor_effective_username"},
				IOCPort:    {"action_remote_port"},

				IOCCommandLine: {"action_process_image_command_line", "actor_process_command_line"},
				IOCPath:        {"action_file_path", "actor_process_image_path"},
			},
			Keywords: []Keyword{
				{"endpoint", "endpoints"},
				{"endpoints", "endpoints"},
				{"inventory", "endpoints"},
			},
		},
	}, opts)
}

// S1 returns the SentinelOne Deep Visibility platform.
func S1(opts ...Option) Platform {
	return newDialect(&dialect{
		id:       ir.PlatformS1,
		renderer: render.S1QL{EventFilters: S1EventFilters},
		labels:   docLabels{dataset: "Dataset", dialect: "S1QL"},
		profile: Profile{
			DefaultDataset: "processes",
			DefaultLimit:   DefaultLimit,
			MaxLimit:       MaxLimitS1,
			TextOperator:   queryast.OpIEq,
			IOCFields: map[IOCKind][]string{
				IOCMD5:     {"tgt.process.image.md5", "tgt.file.md5", "src.process.image.md5"},
				IOCSHA1:    {"tgt.process.image.sha1", "tgt.file.sha1"},
				IOCSHA256:  {"tgt.process.image.sha256", "tgt.file.sha256"},
				IOCIPv4:    {"dst.ip.address", "src.ip.address"},
				IOCIPv6:    {"dst.ip.address", "src.ip.address"},
				IOCProcess: {"tgt.process.name", "src.process.name"},
				IOCHost:    {"endpoint.name"},
				IOCUser:    {"tgt.process.user", "src.process.user", "identity.user.username"},
				IOCDomain:  {"dns.request.domain"},
				IOCPort:    {"dst.port.number"},

				IOCCommandLine: {"tgt.process.cmdline", "src.process.cmdline"},
				IOCPath:        {"tgt.file.path", "tgt.process.image.path", "src.process.image.path"},
			},
			Keywords: []Keyword{
				{"dns", "dns"},
				{"login", "logins"},
				{"logon", "logins"},
				{"network", "network_actions"},
				{"connection", "network_actions"},
				{"connections", "network_actions"},
				{"file", "files"},
				{"files", "files"},
				{"process", "processes"},
				{"processes", "processes"},
			},
		},
	}, opts)
}

// All returns every platform in canonical order.
func All(limits map[ir.PlatformID]int) []Platform {
	return []Platform{
		KQL(WithMaxLimit(limits[ir.PlatformKQL])),
		CBC(WithMaxLimit(limits[ir.PlatformCBC])),
		Cortex(WithMaxLimit(limits[ir.PlatformCortex])),
		S1(WithMaxLimit(limits[ir.PlatformS1])),
	}
}
