package ami

import (
	"sort"
	"strconv"
)

// Typed builders for commonly used manager actions. Each is pure data
// formatting: it assembles the field set and nothing more. Anything not
// covered here can be built with NewAction or BuildAction directly.

func boolValue(flag bool, trueWord string, falseWord string) string {
	if flag {
		return trueWord
	}
	return falseWord
}

// Ping builds the keepalive action; a Ping elicits a Pong response.
func Ping() *Action { return NewAction("Ping") }

// Logoff ends the current manager session.
func Logoff() *Action { return NewAction("Logoff") }

// Command executes an Asterisk CLI command.
func Command(command string) *Action {
	return NewAction("Command").Set("Command", command)
}

// CoreSettings shows PBX core settings (version etc).
func CoreSettings() *Action { return NewAction("CoreSettings") }

// CoreStatus shows PBX core status variables.
func CoreStatus() *Action { return NewAction("CoreStatus") }

// CoreShowChannels lists currently defined channels.
func CoreShowChannels() *Action { return NewAction("CoreShowChannels") }

// ListCommands lists the actions the manager makes available.
func ListCommands() *Action { return NewAction("ListCommands") }

// Events controls which event classes the manager sends ("on", "off", or a
// comma-separated mask such as "system,call").
func Events(eventMask string) *Action {
	return NewAction("Events").Set("EventMask", eventMask)
}

// AbsoluteTimeout hangs up a channel after timeout seconds.
func AbsoluteTimeout(channel string, timeout int) *Action {
	return NewAction("AbsoluteTimeout").
		Set("Channel", channel).
		Set("Timeout", strconv.Itoa(timeout))
}

// Hangup hangs up a channel.
func Hangup(channel string) *Action {
	return NewAction("Hangup").Set("Channel", channel)
}

// Redirect moves a channel to the given dialplan position.
func Redirect(channel string, context string, exten string, priority string) *Action {
	return NewAction("Redirect").
		Set("Channel", channel).
		Set("Context", context).
		Set("Exten", exten).
		Set("Priority", priority)
}

// Atxfer performs an attended transfer.
func Atxfer(channel string, exten string, context string, priority string) *Action {
	return NewAction("Atxfer").
		Set("Channel", channel).
		Set("Exten", exten).
		Set("Context", context).
		Set("Priority", priority)
}

// Bridge connects two channels already in the PBX.
func Bridge(channel1 string, channel2 string, tone bool) *Action {
	return NewAction("Bridge").
		Set("Channel1", channel1).
		Set("Channel2", channel2).
		Set("Tone", boolValue(tone, "yes", "no"))
}

// Park parks a channel, returning to channel2 on timeout.
func Park(channel string, channel2 string, timeoutMillis int, parkinglot string) *Action {
	action := NewAction("Park").
		Set("Channel", channel).
		Set("Channel2", channel2).
		Set("Timeout", strconv.Itoa(timeoutMillis))
	if parkinglot != "" {
		action.Set("Parkinglot", parkinglot)
	}
	return action
}

// ParkedCalls lists parked calls.
func ParkedCalls() *Action { return NewAction("ParkedCalls") }

// PlayDTMF plays a DTMF digit on a channel.
func PlayDTMF(channel string, digit string) *Action {
	return NewAction("PlayDTMF").
		Set("Channel", channel).
		Set("Digit", digit)
}

// SendText sends a text message to a channel.
func SendText(channel string, message string) *Action {
	return NewAction("SendText").
		Set("Channel", channel).
		Set("Message", message)
}

// Status reports channel status; an empty channel means all channels.
func Status(channel string) *Action {
	action := NewAction("Status")
	if channel != "" {
		action.Set("Channel", channel)
	}
	return action
}

// ExtensionState checks the state of a dialplan extension.
func ExtensionState(exten string, context string) *Action {
	return NewAction("ExtensionState").
		Set("Exten", exten).
		Set("Context", context)
}

// GetVar reads a channel (or global) variable.
func GetVar(variable string, channel string) *Action {
	action := NewAction("GetVar").Set("Variable", variable)
	if channel != "" {
		action.Set("Channel", channel)
	}
	return action
}

// SetVar writes a channel (or global) variable.
func SetVar(variable string, value string, channel string) *Action {
	action := NewAction("SetVar").
		Set("Variable", variable).
		Set("Value", value)
	if channel != "" {
		action.Set("Channel", channel)
	}
	return action
}

// OriginateParams carries the optional pieces of an Originate call.
type OriginateParams struct {
	Context     string
	Exten       string
	Priority    string
	TimeoutSecs int
	CallerID    string
	Account     string
	Application string
	Data        string
	Codecs      string
	Async       bool
	Variables   map[string]string
}

// Originate generates an outgoing call to an extension or application.
// Channel variables become repeated Variable headers, sorted by name so
// the wire image is deterministic.
func Originate(channel string, params OriginateParams) *Action {
	action := NewAction("Originate").Set("Channel", channel)
	if params.Context != "" {
		action.Set("Context", params.Context)
	}
	if params.Exten != "" {
		action.Set("Exten", params.Exten)
	}
	if params.Priority != "" {
		action.Set("Priority", params.Priority)
	}
	if params.CallerID != "" {
		action.Set("Callerid", params.CallerID)
	}
	if params.Account != "" {
		action.Set("Account", params.Account)
	}
	if params.Application != "" {
		action.Set("Application", params.Application)
	}
	if params.Data != "" {
		action.Set("Data", params.Data)
	}
	if params.Codecs != "" {
		action.Set("Codec", params.Codecs)
	}
	action.Set("Async", boolValue(params.Async, "true", "false"))
	if params.TimeoutSecs > 0 {
		action.Set("Timeout", strconv.Itoa(params.TimeoutSecs*1000))
	}

	names := make([]string, 0, len(params.Variables))
	for name := range params.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		action.Add("Variable", name+"="+params.Variables[name])
	}

	return action
}

// Monitor starts recording a channel.
func Monitor(channel string, file string, format string, mix bool) *Action {
	return NewAction("Monitor").
		Set("Channel", channel).
		Set("File", file).
		Set("Format", format).
		Set("Mix", boolValue(mix, "true", "false"))
}

// StopMonitor stops recording a channel.
func StopMonitor(channel string) *Action {
	return NewAction("StopMonitor").Set("Channel", channel)
}

// PauseMonitor temporarily stops recording a channel.
func PauseMonitor(channel string) *Action {
	return NewAction("PauseMonitor").Set("Channel", channel)
}

// UnpauseMonitor resumes recording a channel.
func UnpauseMonitor(channel string) *Action {
	return NewAction("UnpauseMonitor").Set("Channel", channel)
}

// ChangeMonitor changes the recording filename of a monitored channel.
func ChangeMonitor(channel string, filename string) *Action {
	return NewAction("ChangeMonitor").
		Set("Channel", channel).
		Set("File", filename)
}

// MailboxCount counts messages in a voicemail box.
func MailboxCount(mailbox string) *Action {
	return NewAction("MailboxCount").Set("Mailbox", mailbox)
}

// MailboxStatus checks a voicemail box for waiting messages.
func MailboxStatus(mailbox string) *Action {
	return NewAction("MailboxStatus").Set("Mailbox", mailbox)
}

// QueueAdd adds an interface to a queue.
func QueueAdd(queue string, iface string, penalty int, paused bool) *Action {
	return NewAction("QueueAdd").
		Set("Queue", queue).
		Set("Interface", iface).
		Set("Penalty", strconv.Itoa(penalty)).
		Set("Paused", boolValue(paused, "true", "false"))
}

// QueueRemove removes an interface from a queue.
func QueueRemove(queue string, iface string) *Action {
	return NewAction("QueueRemove").
		Set("Queue", queue).
		Set("Interface", iface)
}

// QueuePause pauses or unpauses a queue member.
func QueuePause(queue string, iface string, paused bool, reason string) *Action {
	action := NewAction("QueuePause").
		Set("Queue", queue).
		Set("Interface", iface).
		Set("Paused", boolValue(paused, "true", "false"))
	if reason != "" {
		action.Set("Reason", reason)
	}
	return action
}

// QueueStatus reports queue status; empty arguments mean all.
func QueueStatus(queue string, member string) *Action {
	action := NewAction("QueueStatus")
	if queue != "" {
		action.Set("Queue", queue)
	}
	if member != "" {
		action.Set("Member", member)
	}
	return action
}

// QueueSummary summarizes one queue.
func QueueSummary(queue string) *Action {
	return NewAction("QueueSummary").Set("Queue", queue)
}

// Queues lists all defined queues.
func Queues() *Action { return NewAction("Queues") }

// DBGet reads an AstDB entry.
func DBGet(family string, key string) *Action {
	return NewAction("DBGet").
		Set("Family", family).
		Set("Key", key)
}

// DBPut writes an AstDB entry.
func DBPut(family string, key string, value string) *Action {
	return NewAction("DBPut").
		Set("Family", family).
		Set("Key", key).
		Set("Val", value)
}

// DBDel deletes an AstDB entry.
func DBDel(family string, key string) *Action {
	return NewAction("DBDel").
		Set("Family", family).
		Set("Key", key)
}

// DBDelTree deletes an AstDB family, or a subtree when key is set.
func DBDelTree(family string, key string) *Action {
	action := NewAction("DBDelTree").Set("Family", family)
	if key != "" {
		action.Set("Key", key)
	}
	return action
}

// UserEvent emits a custom event to other manager sessions. Extra headers
// are appended sorted by name.
func UserEvent(name string, headers map[string]string) *Action {
	action := NewAction("UserEvent").Set("UserEvent", name)
	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		action.Set(key, headers[key])
	}
	return action
}

// WaitEvent waits server-side for an event; -1 means forever.
func WaitEvent(timeoutSecs int) *Action {
	return NewAction("WaitEvent").Set("Timeout", strconv.Itoa(timeoutSecs))
}

// SIPPeers lists SIP peers.
func SIPPeers() *Action { return NewAction("SIPPeers") }

// SIPShowPeer shows one SIP peer in detail.
func SIPShowPeer(peer string) *Action {
	return NewAction("SIPShowPeer").Set("Peer", peer)
}

// SIPQualifyPeer qualifies a SIP peer.
func SIPQualifyPeer(peer string) *Action {
	return NewAction("SIPQualifyPeer").Set("Peer", peer)
}

// GetConfig reads a configuration file, optionally a single category.
func GetConfig(filename string, category string) *Action {
	action := NewAction("GetConfig").Set("Filename", filename)
	if category != "" {
		action.Set("Category", category)
	}
	return action
}

// Reload reloads a module, or all configuration when module is empty.
func Reload(module string) *Action {
	action := NewAction("Reload")
	if module != "" {
		action.Set("Module", module)
	}
	return action
}

// ModuleLoad loads, unloads, or reloads a module.
func ModuleLoad(module string, loadType string) *Action {
	return NewAction("ModuleLoad").
		Set("Module", module).
		Set("LoadType", loadType)
}
