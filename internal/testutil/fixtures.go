package testutil

import (
	"fmt"

	"github.com/roach88/huntql/internal/ir"
)

// Schema returns the fixture schema for platform. It panics on an unknown
// platform.
//
// Each call returns a fresh copy, so tests may mutate the result.
func Schema(platform ir.PlatformID) ir.SchemaContent {
	switch platform {
	case ir.PlatformKQL:
		return KQLSchema()
	case ir.PlatformCBC:
		return CBCSchema()
	case ir.PlatformCortex:
		return CortexSchema()
	case ir.PlatformS1:
		return S1Schema()
	}
	panic(fmt.Sprintf("testutil: no fixture schema for platform %q", platform))
}

// ProcessSchema is a minimal schema with one dataset "Process".
func ProcessSchema() ir.SchemaContent {
	return ir.SchemaContent{
		Datasets: []ir.Dataset{
			{
				Name:        "Process",
				Description: "Process creation events",
				Fields: []ir.Field{
					{Name: "Timestamp", Type: ir.FieldTimestamp, Default: true},
					{Name: "DeviceName", Type: ir.FieldString, Default: true},
					{Name: "FileName", Type: ir.FieldString, Default: true},
					{Name: "ProcessCommandLine", Type: ir.FieldString},
				},
			},
			{
				Name: "Network",
				Fields: []ir.Field{
					{Name: "Timestamp", Type: ir.FieldTimestamp},
					{Name: "RemoteIP", Type: ir.FieldIP},
					{Name: "RemotePort", Type: ir.FieldNumber},
				},
			},
		},
	}
}

// KQLSchema is a trimmed Defender Advanced Hunting schema.
func KQLSchema() ir.SchemaContent {
	return ir.SchemaContent{
		Datasets: []ir.Dataset{
			{
				Name:        "DeviceProcessEvents",
				Description: "Process creation and related events",
				Aliases:     []string{"ProcessEvents"},
				Fields: []ir.Field{
					{Name: "Timestamp", Type: ir.FieldTimestamp, Default: true, Description: "Date and time when the event was recorded"},
					{Name: "DeviceName", Type: ir.FieldString, Default: true, Description: "Fully qualified domain name of the device"},
					{Name: "ActionType", Type: ir.FieldEnum, Values: []string{"ProcessCreated", "OpenProcess"}, Description: "Type of activity that triggered the event"},
					{Name: "FileName", Type: ir.FieldString, Default: true, Description: "Name of the file that the recorded action was applied to"},
					{Name: "FolderPath", Type: ir.FieldString, Description: "Folder containing the file"},
					{Name: "ProcessCommandLine", Type: ir.FieldString, Default: true, Description: "Command line used to create the new process"},
					{Name: "ProcessId", Type: ir.FieldNumber, Description: "Process ID of the newly created process"},
					{Name: "AccountName", Type: ir.FieldString, Description: "User name of the account"},
					{Name: "InitiatingProcessFileName", Type: ir.FieldString, Description: "Name of the process that initiated the event"},
					{Name: "SHA1", Type: ir.FieldHash, Description: "SHA-1 of the file"},
					{Name: "SHA256", Type: ir.FieldHash, Description: "SHA-256 of the file"},
					{Name: "MD5", Type: ir.FieldHash, Description: "MD5 hash of the file"},
				},
			},
			{
				Name:        "DeviceNetworkEvents",
				Description: "Network connections and related events",
				Aliases:     []string{"NetworkEvents"},
				Fields: []ir.Field{
					{Name: "Timestamp", Type: ir.FieldTimestamp, Default: true},
					{Name: "DeviceName", Type: ir.FieldString, Default: true},
					{Name: "ActionType", Type: ir.FieldEnum, Values: []string{"ConnectionSuccess", "ConnectionFailed", "InboundConnectionAccepted"}},
					{Name: "RemoteIP", Type: ir.FieldIP, Default: true, Description: "IP address that was being connected to"},
					{Name: "RemotePort", Type: ir.FieldNumber, Default: true, Description: "TCP port on the remote device"},
					{Name: "RemoteUrl", Type: ir.FieldString, Description: "URL or FQDN that was being connected to"},
					{Name: "LocalIP", Type: ir.FieldIP},
					{Name: "InitiatingProcessFileName", Type: ir.FieldString},
				},
			},
			{
				Name:        "DeviceFileEvents",
				Description: "File creation, modification and other file system events",
				Fields: []ir.Field{
					{Name: "Timestamp", Type: ir.FieldTimestamp, Default: true},
					{Name: "DeviceName", Type: ir.FieldString, Default: true},
					{Name: "ActionType", Type: ir.FieldEnum, Values: []string{"FileCreated", "FileModified", "FileDeleted", "FileRenamed"}},
					{Name: "FileName", Type: ir.FieldString, Default: true},
					{Name: "FolderPath", Type: ir.FieldString},
					{Name: "SHA1", Type: ir.FieldHash},
					{Name: "SHA256", Type: ir.FieldHash},
					{Name: "MD5", Type: ir.FieldHash},
					{Name: "InitiatingProcessFileName", Type: ir.FieldString},
				},
			},
			{
				Name:        "DeviceLogonEvents",
				Description: "Sign-ins and other authentication events",
				Fields: []ir.Field{
					{Name: "Timestamp", Type: ir.FieldTimestamp, Default: true},
					{Name: "DeviceName", Type: ir.FieldString, Default: true},
					{Name: "AccountName", Type: ir.FieldString, Default: true},
					{Name: "LogonType", Type: ir.FieldEnum, Values: []string{"Interactive", "Network", "RemoteInteractive", "Service"}},
					{Name: "RemoteIP", Type: ir.FieldIP},
				},
			},
		},
		Examples: []ir.Example{
			{
				Title:       "Encoded PowerShell",
				Query:       "DeviceProcessEvents\n| where FileName =~ \"powershell.exe\"\n| where ProcessCommandLine has \"-enc\"",
				Description: "PowerShell launched with an encoded command line",
			},
			{
				Title: "Rare remote ports",
				Query: "DeviceNetworkEvents\n| summarize count() by RemotePort\n| where count_ < 5",
			},
		},
		BestPractices: []ir.BestPractice{
			{Category: "performance", Items: []string{"Filter on Timestamp first", "Project only the columns you need"}},
			{Category: "accuracy", Items: []string{"Use =~ for case-insensitive file name matches"}},
		},
		Operators: []ir.OperatorRef{
			{Name: "has", Description: "Case-insensitive whole term match", Example: "ProcessCommandLine has \"-enc\""},
			{Name: "=~", Description: "Case-insensitive equality", Example: "FileName =~ \"cmd.exe\""},
			{Name: "in", Description: "Equals any of the listed values", Example: "RemotePort in (22, 3389)"},
		},
	}
}

// CBCSchema is a trimmed Carbon Black Cloud schema.
func CBCSchema() ir.SchemaContent {
	return ir.SchemaContent{
		Datasets: []ir.Dataset{
			{
				Name:        "process",
				Description: "Process search",
				Aliases:     []string{"process_search", "processes"},
				Fields: []ir.Field{
					{Name: "process_name", Type: ir.FieldString, Default: true, Description: "Process image file name"},
					{Name: "process_cmdline", Type: ir.FieldString, Default: true, Description: "Process command line"},
					{Name: "process_hash", Type: ir.FieldHash, Description: "MD5 or SHA-256 of the process image"},
					{Name: "process_pid", Type: ir.FieldNumber},
					{Name: "process_username", Type: ir.FieldString},
					{Name: "device_name", Type: ir.FieldString, Default: true},
					{Name: "device_os", Type: ir.FieldEnum, Values: []string{"WINDOWS", "MAC", "LINUX"}},
					{Name: "parent_name", Type: ir.FieldString},
					{Name: "childproc_name", Type: ir.FieldString},
					{Name: "netconn_ipv4", Type: ir.FieldIP},
					{Name: "netconn_domain", Type: ir.FieldString},
					{Name: "netconn_port", Type: ir.FieldNumber},
					{Name: "filemod_name", Type: ir.FieldString},
					{Name: "regmod_name", Type: ir.FieldString},
				},
			},
			{
				Name:        "binary",
				Description: "Binary search",
				Aliases:     []string{"binary_search"},
				Operators:   []string{"==", "!=", "in"},
				Fields: []ir.Field{
					{Name: "md5", Type: ir.FieldHash, Default: true},
					{Name: "sha256", Type: ir.FieldHash, Default: true},
					{Name: "original_filename", Type: ir.FieldString, Default: true},
					{Name: "file_size", Type: ir.FieldNumber},
				},
			},
			{
				Name:        "alert",
				Description: "Alert search",
				Aliases:     []string{"alert_search", "alerts"},
				Fields: []ir.Field{
					{Name: "alert_id", Type: ir.FieldString, Default: true},
					{Name: "severity", Type: ir.FieldNumber, Default: true},
					{Name: "device_name", Type: ir.FieldString, Default: true},
					{Name: "process_name", Type: ir.FieldString},
				},
			},
		},
		Examples: []ir.Example{
			{Title: "Office spawning a shell", Query: "parent_name:winword.exe AND process_name:cmd.exe", Category: "process"},
		},
		BestPractices: []ir.BestPractice{
			{Category: "syntax", Items: []string{"Quote values that contain spaces", "Prefix a term with - to exclude it"}},
		},
		Operators: []ir.OperatorRef{
			{Name: "AND", Description: "Both terms must match", Example: "process_name:cmd.exe AND device_os:WINDOWS"},
			{Name: "wildcard", Description: "Trailing * matches any suffix", Example: "process_name:power*"},
		},
	}
}

// CortexSchema is a trimmed Cortex XDR schema.
func CortexSchema() ir.SchemaContent {
	return ir.SchemaContent{
		Datasets: []ir.Dataset{
			{
				Name:        "xdr_data",
				Description: "Raw endpoint telemetry",
				Fields: []ir.Field{
					{Name: "_time", Type: ir.FieldTimestamp, Default: true},
					{Name: "agent_hostname", Type: ir.FieldString, Default: true},
					{Name: "event_type", Type: ir.FieldEnum, Values: []string{"ENUM.PROCESS", "ENUM.NETWORK", "ENUM.FILE"}},
					{Name: "actor_process_image_name", Type: ir.FieldString, Default: true},
					{Name: "actor_process_command_line", Type: ir.FieldString, Default: true},
					{Name: "actor_effective_username", Type: ir.FieldString},
					{Name: "action_process_image_name", Type: ir.FieldString},
					{Name: "action_file_name", Type: ir.FieldString},
					{Name: "action_file_path", Type: ir.FieldString},
					{Name: "action_file_md5", Type: ir.FieldHash},
					{Name: "action_file_sha256", Type: ir.FieldHash},
					{Name: "action_local_ip", Type: ir.FieldIP},
					{Name: "action_remote_ip", Type: ir.FieldIP},
					{Name: "action_remote_port", Type: ir.FieldNumber},
				},
			},
			{
				Name:        "endpoints",
				Description: "Endpoint inventory",
				Fields: []ir.Field{
					{Name: "endpoint_name", Type: ir.FieldString, Default: true},
					{Name: "endpoint_status", Type: ir.FieldEnum, Values: []string{"CONNECTED", "DISCONNECTED"}, Default: true},
					{Name: "ip_address", Type: ir.FieldIP},
					{Name: "last_seen", Type: ir.FieldTimestamp},
				},
			},
		},
		Examples: []ir.Example{
			{Title: "Process by hash", Query: "dataset = xdr_data\n| filter action_file_sha256 = '...'\n| limit 100"},
		},
		BestPractices: []ir.BestPractice{
			{Category: "performance", Items: []string{"Always bound _time", "Filter on event_type early"}},
		},
		Operators: []ir.OperatorRef{
			{Name: "contains", Description: "Substring match", Example: "actor_process_command_line contains 'http'"},
			{Name: "in", Description: "Set membership", Example: "action_remote_port in (22, 3389)"},
		},
	}
}

// S1Schema is a trimmed SentinelOne Deep Visibility schema.
func S1Schema() ir.SchemaContent {
	return ir.SchemaContent{
		Datasets: []ir.Dataset{
			{
				Name:        "processes",
				Description: "Process creation events",
				Fields: []ir.Field{
					{Name: "endpoint.name", Type: ir.FieldString, Default: true},
					{Name: "src.process.name", Type: ir.FieldString, Default: true},
					{Name: "src.process.cmdline", Type: ir.FieldString},
					{Name: "src.process.user", Type: ir.FieldString},
					{Name: "tgt.process.name", Type: ir.FieldString, Default: true},
					{Name: "tgt.process.displayName", Type: ir.FieldString},
					{Name: "tgt.process.cmdline", Type: ir.FieldString, Default: true},
					{Name: "tgt.process.user", Type: ir.FieldString},
					{Name: "tgt.process.image.md5", Type: ir.FieldHash},
					{Name: "tgt.process.image.sha1", Type: ir.FieldHash},
					{Name: "tgt.process.image.sha256", Type: ir.FieldHash},
					{Name: "tgt.process.pid", Type: ir.FieldNumber},
				},
			},
			{
				Name:        "network_actions",
				Description: "Network connections",
				Fields: []ir.Field{
					{Name: "endpoint.name", Type: ir.FieldString, Default: true},
					{Name: "src.process.name", Type: ir.FieldString, Default: true},
					{Name: "src.ip.address", Type: ir.FieldIP},
					{Name: "dst.ip.address", Type: ir.FieldIP, Default: true},
					{Name: "dst.port.number", Type: ir.FieldNumber, Default: true},
					{Name: "src.port.number", Type: ir.FieldNumber},
				},
			},
			{
				Name:        "files",
				Description: "File activity",
				Fields: []ir.Field{
					{Name: "endpoint.name", Type: ir.FieldString, Default: true},
					{Name: "tgt.file.name", Type: ir.FieldString, Default: true},
					{Name: "tgt.file.path", Type: ir.FieldString},
					{Name: "tgt.file.md5", Type: ir.FieldHash},
					{Name: "tgt.file.sha1", Type: ir.FieldHash},
					{Name: "tgt.file.sha256", Type: ir.FieldHash},
					{Name: "src.process.name", Type: ir.FieldString},
				},
			},
			{
				Name:        "dns",
				Description: "DNS requests",
				Fields: []ir.Field{
					{Name: "endpoint.name", Type: ir.FieldString, Default: true},
					{Name: "dns.request.domain", Type: ir.FieldString, Default: true},
					{Name: "src.process.name", Type: ir.FieldString},
				},
			},
		},
		Examples: []ir.Example{
			{Title: "Encoded PowerShell", Query: "tgt.process.name contains:anycase 'powershell' AND tgt.process.cmdline contains:anycase '-enc'"},
		},
		BestPractices: []ir.BestPractice{
			{Category: "performance", Items: []string{"Scope by meta.event.name", "Prefer in:anycase over chained OR"}},
		},
		Operators: []ir.OperatorRef{
			{Name: "contains:anycase", Description: "Case-insensitive substring", Example: "tgt.process.cmdline contains:anycase 'mimikatz'"},
			{Name: "in:anycase", Description: "Case-insensitive set membership", Example: "tgt.process.name in:anycase ('cmd.exe', 'powershell.exe')"},
		},
	}
}
