package ami

import (
	"sort"
	"strings"
)

// ActionSpec describes one catalogued manager action: its canonical name
// and which header fields it requires or accepts. The catalog covers
// presence only; field values are never validated against protocol
// semantics.
type ActionSpec struct {
	Name     string
	Required []string
	Optional []string
}

// actionTable is the manager action catalog, keyed by lowercased action
// name. Derived from the Asterisk manager action reference.
var actionTable = map[string]ActionSpec{
	"absolutetimeout":    {Name: "AbsoluteTimeout", Required: []string{"Channel", "Timeout"}},
	"agentlogoff":        {Name: "AgentLogoff", Required: []string{"Agent"}, Optional: []string{"Soft"}},
	"agents":             {Name: "Agents"},
	"agi":                {Name: "AGI", Required: []string{"Channel", "Command"}, Optional: []string{"CommandID"}},
	"atxfer":             {Name: "Atxfer", Required: []string{"Channel", "Exten", "Context", "Priority"}},
	"bridge":             {Name: "Bridge", Required: []string{"Channel1", "Channel2"}, Optional: []string{"Tone"}},
	"challenge":          {Name: "Challenge", Required: []string{"AuthType"}},
	"changemonitor":      {Name: "ChangeMonitor", Required: []string{"Channel", "File"}},
	"command":            {Name: "Command", Required: []string{"Command"}},
	"coresettings":       {Name: "CoreSettings"},
	"coreshowchannels":   {Name: "CoreShowChannels"},
	"corestatus":         {Name: "CoreStatus"},
	"createconfig":       {Name: "CreateConfig", Required: []string{"Filename"}},
	"dahdidialoffhook":   {Name: "DAHDIDialOffhook", Required: []string{"DAHDIChannel", "Number"}},
	"dahdidndoff":        {Name: "DAHDIDNDoff", Required: []string{"DAHDIChannel"}},
	"dahdidndon":         {Name: "DAHDIDNDon", Required: []string{"DAHDIChannel"}},
	"dahdihangup":        {Name: "DAHDIHangup", Required: []string{"DAHDIChannel"}},
	"dahdirestart":       {Name: "DAHDIRestart"},
	"dahdishowchannels":  {Name: "DAHDIShowChannels", Optional: []string{"DAHDIChannel"}},
	"dahditransfer":      {Name: "DAHDITransfer", Required: []string{"DAHDIChannel"}},
	"dataget":            {Name: "DataGet", Required: []string{"Path"}, Optional: []string{"Search", "Filter"}},
	"dbdel":              {Name: "DBDel", Required: []string{"Family", "Key"}},
	"dbdeltree":          {Name: "DBDelTree", Required: []string{"Family"}, Optional: []string{"Key"}},
	"dbget":              {Name: "DBGet", Required: []string{"Family", "Key"}},
	"dbput":              {Name: "DBPut", Required: []string{"Family", "Key", "Val"}},
	"events":             {Name: "Events", Required: []string{"EventMask"}},
	"extensionstate":     {Name: "ExtensionState", Required: []string{"Exten", "Context"}},
	"getconfig":          {Name: "GetConfig", Required: []string{"Filename"}, Optional: []string{"Category"}},
	"getconfigjson":      {Name: "GetConfigJSON", Required: []string{"Filename"}},
	"getvar":             {Name: "GetVar", Required: []string{"Variable"}, Optional: []string{"Channel"}},
	"hangup":             {Name: "Hangup", Required: []string{"Channel"}, Optional: []string{"Cause"}},
	"iaxnetstats":        {Name: "IAXnetstats"},
	"iaxpeerlist":        {Name: "IAXpeerlist"},
	"iaxpeers":           {Name: "IAXpeers"},
	"iaxregistry":        {Name: "IAXregistry"},
	"jabbersend":         {Name: "JabberSend", Required: []string{"Jabber", "JID", "Message"}},
	"listcategories":     {Name: "ListCategories", Required: []string{"Filename"}},
	"listcommands":       {Name: "ListCommands"},
	"localoptimizeaway":  {Name: "LocalOptimizeAway", Required: []string{"Channel"}},
	"login":              {Name: "Login", Required: []string{"Username"}, Optional: []string{"Secret", "AuthType", "Key"}},
	"logoff":             {Name: "Logoff"},
	"mailboxcount":       {Name: "MailboxCount", Required: []string{"Mailbox"}},
	"mailboxstatus":      {Name: "MailboxStatus", Required: []string{"Mailbox"}},
	"meetmelist":         {Name: "MeetmeList", Optional: []string{"Conference"}},
	"meetmemute":         {Name: "MeetmeMute", Required: []string{"Meetme", "Usernum"}},
	"meetmeunmute":       {Name: "MeetmeUnmute", Required: []string{"Meetme", "Usernum"}},
	"mixmonitormute":     {Name: "MixMonitorMute", Required: []string{"Channel", "Direction", "State"}},
	"modulecheck":        {Name: "ModuleCheck", Required: []string{"Module"}},
	"moduleload":         {Name: "ModuleLoad", Required: []string{"Module", "LoadType"}},
	"monitor":            {Name: "Monitor", Required: []string{"Channel"}, Optional: []string{"File", "Format", "Mix"}},
	"originate":          {Name: "Originate", Required: []string{"Channel"}, Optional: []string{"Context", "Exten", "Priority", "Timeout", "Callerid", "Account", "Application", "Data", "Codec", "Async", "Variable"}},
	"park":               {Name: "Park", Required: []string{"Channel", "Channel2"}, Optional: []string{"Timeout", "Parkinglot"}},
	"parkedcalls":        {Name: "ParkedCalls"},
	"pausemonitor":       {Name: "PauseMonitor", Required: []string{"Channel"}},
	"ping":               {Name: "Ping"},
	"playdtmf":           {Name: "PlayDTMF", Required: []string{"Channel", "Digit"}},
	"queueadd":           {Name: "QueueAdd", Required: []string{"Queue", "Interface"}, Optional: []string{"Penalty", "Paused", "MemberName", "StateInterface"}},
	"queuelog":           {Name: "QueueLog", Required: []string{"Queue", "Event"}, Optional: []string{"Uniqueid", "Interface", "Message"}},
	"queuepause":         {Name: "QueuePause", Required: []string{"Queue", "Interface", "Paused"}, Optional: []string{"Reason"}},
	"queuepenalty":       {Name: "QueuePenalty", Required: []string{"Interface", "Penalty"}, Optional: []string{"Queue"}},
	"queuereload":        {Name: "QueueReload", Required: []string{"Queue"}, Optional: []string{"Members", "Rules", "Parameters"}},
	"queueremove":        {Name: "QueueRemove", Required: []string{"Queue", "Interface"}},
	"queuereset":         {Name: "QueueReset", Required: []string{"Queue"}},
	"queuerule":          {Name: "QueueRule", Optional: []string{"Rule"}},
	"queues":             {Name: "Queues"},
	"queuestatus":        {Name: "QueueStatus", Optional: []string{"Queue", "Member"}},
	"queuesummary":       {Name: "QueueSummary", Required: []string{"Queue"}},
	"redirect":           {Name: "Redirect", Required: []string{"Channel", "Context", "Exten", "Priority"}, Optional: []string{"ExtraChannel", "ExtraExten", "ExtraContext", "ExtraPriority"}},
	"reload":             {Name: "Reload", Optional: []string{"Module"}},
	"sendtext":           {Name: "SendText", Required: []string{"Channel", "Message"}},
	"setvar":             {Name: "SetVar", Required: []string{"Variable", "Value"}, Optional: []string{"Channel"}},
	"showdialplan":       {Name: "ShowDialPlan", Optional: []string{"Extension", "Context"}},
	"sippeers":           {Name: "SIPPeers"},
	"sipqualifypeer":     {Name: "SIPQualifyPeer", Required: []string{"Peer"}},
	"sipshowpeer":        {Name: "SIPShowPeer", Required: []string{"Peer"}},
	"sipshowregistry":    {Name: "SIPShowRegistry"},
	"status":             {Name: "Status", Optional: []string{"Channel", "Variables"}},
	"stopmonitor":        {Name: "StopMonitor", Required: []string{"Channel"}},
	"unpausemonitor":     {Name: "UnpauseMonitor", Required: []string{"Channel"}},
	"updateconfig":       {Name: "UpdateConfig", Required: []string{"SrcFilename", "DstFilename", "Reload"}},
	"userevent":          {Name: "UserEvent", Required: []string{"UserEvent"}},
	"voicemailuserslist": {Name: "VoicemailUsersList"},
	"waitevent":          {Name: "WaitEvent", Required: []string{"Timeout"}},
}

// LookupAction returns the catalog entry for an action name,
// case-insensitively.
func LookupAction(name string) (ActionSpec, bool) {
	spec, exists := actionTable[strings.ToLower(name)]
	return spec, exists
}

// ActionNames returns every catalogued action name, sorted.
func ActionNames() []string {
	names := make([]string, 0, len(actionTable))
	for _, spec := range actionTable {
		names = append(names, spec.Name)
	}
	sort.Strings(names)
	return names
}

// BuildAction assembles a catalogued action from a field mapping. It fails
// when the action is unknown or a required field is missing or empty.
// Catalogued fields come first in specification order; any extra fields
// follow in sorted order so output is deterministic.
func BuildAction(name string, fields map[string]string) (*Action, error) {
	spec, known := LookupAction(name)
	if !known {
		return nil, NewError(CommandError, "unknown action "+name)
	}

	lookup := make(map[string]string, len(fields))
	for fieldName, value := range fields {
		lookup[strings.ToLower(fieldName)] = value
	}

	action := NewAction(spec.Name)
	consumed := map[string]bool{"action": true}

	for _, required := range spec.Required {
		value, present := lookup[strings.ToLower(required)]
		if !present || value == "" {
			return nil, NewError(CommandError, spec.Name+" requires field "+required)
		}
		action.Set(required, value)
		consumed[strings.ToLower(required)] = true
	}
	for _, optional := range spec.Optional {
		if value, present := lookup[strings.ToLower(optional)]; present {
			action.Set(optional, value)
			consumed[strings.ToLower(optional)] = true
		}
	}

	var extras []string
	for fieldName := range fields {
		if !consumed[strings.ToLower(fieldName)] {
			extras = append(extras, fieldName)
		}
	}
	sort.Strings(extras)
	for _, fieldName := range extras {
		action.Set(fieldName, fields[fieldName])
	}

	return action, nil
}
