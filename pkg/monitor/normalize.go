/*
 * Copyright 2025 Aztell Solucoes em Telefonia IP.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package monitor

import (
	"strings"

	"github.com/aztell/callwatch/pkg/ami"
	"github.com/aztell/callwatch/pkg/models"
)

// FactKind tags the variants of a normalized fact.
type FactKind int

const (
	// FactIgnore marks events with no actionable identity or kind.
	FactIgnore FactKind = iota
	FactEndpoint
	FactTrunk
	FactSession
	FactSessionEnd
	FactBatchComplete
)

// Fact is the canonical form of one raw upstream event: an entity kind, an
// entity key and a merge-patch, or a removal/batch-complete directive.
// Exactly one of the payload fields is meaningful, selected by Kind.
type Fact struct {
	Kind     FactKind
	Key      string
	Endpoint models.EndpointPatch
	Trunk    models.TrunkPatch
	Session  models.SessionPatch
	Reason   string            // FactSessionEnd
	Batch    models.EntityKind // FactBatchComplete

	// Inventory marks facts derived from a bulk listing row; the sweep
	// uses session inventory rows to re-confirm liveness.
	Inventory bool
}

const (
	statusUnknown = "Unknown"
	techSIP       = "SIP"
	techIAX       = "IAX"
	techPJSIP     = "PJSIP"
)

// Field alias lists, first-non-empty-wins. The legacy and next-gen
// signaling stacks expose the same logical fact under different field
// names, so every identity/status lookup goes through one of these.
var (
	peerStatusIDFields    = []string{"Peer", "PeerStatus", "EndpointName", "Channel"}
	peerStatusStateFields = []string{"PeerStatus", "Status", "PeerStatusText", "PeerStatusStr", "StatusText"}
	peerStatusTechFields  = []string{"ChannelType", "ChannelDriver"}
	endpointListIDFields  = []string{"ObjectName", "Endpoint", "Username"}
	peerEntryIDFields     = []string{"ObjectName", "Peer", "Username"}
	registryIDFields      = []string{"Channel", "Domain", "Username", "Host"}
	registryStatusFields  = []string{"Status", "Message", "ReplyText"}
	outboundRegIDFields   = []string{"ObjectName", "Domain", "Username", "Host"}
	callerFields          = []string{"CallerIDNum", "CallerID", "CallerIDName"}
	connectedFields       = []string{"ConnectedLineNum", "ConnectedLineName", "Exten"}
	bridgeKeyFields       = []string{"Uniqueid1", "Uniqueid", "BridgeUniqueid"}
)

// batchComplete maps inventory terminator events to the collection they
// close out.
var batchComplete = map[string]models.EntityKind{
	"endpointlistcomplete":               models.KindEndpoint,
	"peerlistcomplete":                   models.KindTrunk,
	"outboundregistrationdetailcomplete": models.KindTrunk,
	"coreshowchannelscomplete":           models.KindSession,
}

// trackedChannelApps limits which dialplan applications count as calls in
// the active-channel listing; service channels (MOH, announcements spawned
// outside these apps) are noise.
var trackedChannelApps = map[string]struct{}{
	"AppDial":      {},
	"Queue":        {},
	"ChanSpy":      {},
	"Playback":     {},
	"BackGround":   {},
	"Transfer":     {},
	"BindTransfer": {},
}

// Normalize maps one raw AMI event to a canonical fact. Unrecognized event
// families and events with no resolvable identity return FactIgnore: the
// upstream event set is a superset of what the monitor tracks, so this is
// permissive by design.
func Normalize(evt ami.Event) Fact {
	name := strings.ToLower(evt.Name())

	if kind, ok := batchComplete[name]; ok {
		return Fact{Kind: FactBatchComplete, Batch: kind}
	}

	switch name {
	case "peerstatus":
		return normalizePeerStatus(evt)
	case "endpointlist":
		return normalizeEndpointRow(evt)
	case "peerentry":
		return normalizePeerEntry(evt)
	case "outboundregistrationdetail":
		return normalizeOutboundRegistration(evt)
	case "registry":
		return normalizeRegistry(evt)
	case "newchannel":
		return normalizeNewChannel(evt)
	case "newstate":
		return normalizeNewState(evt)
	case "bridgeenter", "bridgeleave":
		return normalizeBridge(evt, name == "bridgeenter")
	case "hangup":
		return normalizeHangup(evt)
	case "coreshowchannel":
		return normalizeChannelRow(evt)
	}

	return Fact{}
}

func normalizePeerStatus(evt ami.Event) Fact {
	id := evt.Get(peerStatusIDFields...)
	if id == "" {
		return Fact{}
	}

	return Fact{
		Kind: FactEndpoint,
		Key:  id,
		Endpoint: models.EndpointPatch{
			Status:     orDefault(evt.Get(peerStatusStateFields...), statusUnknown),
			Technology: evt.Get(peerStatusTechFields...),
		},
	}
}

// normalizeEndpointRow handles one row of the next-gen endpoint listing.
// Rows carrying outbound auth are trunk registrations, not line-side
// extensions; the registration listing covers those.
func normalizeEndpointRow(evt ami.Event) Fact {
	if v := evt["OutboundAuths"]; v != "" && v != "0" {
		return Fact{}
	}

	id := evt.Get(endpointListIDFields...)
	if id == "" {
		return Fact{}
	}

	return Fact{
		Kind:      FactEndpoint,
		Key:       id,
		Inventory: true,
		Endpoint: models.EndpointPatch{
			Status:     orDefault(evt["DeviceState"], statusUnknown),
			Technology: techPJSIP,
		},
	}
}

// normalizePeerEntry handles one row of the legacy peer listings. The
// channel type and the peer description discriminate trunk-side from
// line-side registrations.
func normalizePeerEntry(evt ami.Event) Fact {
	id := evt.Get(peerEntryIDFields...)
	if id == "" {
		return Fact{}
	}

	status := orDefault(evt["Status"], statusUnknown)

	switch evt["Channeltype"] {
	case techIAX:
		return Fact{
			Kind:      FactTrunk,
			Key:       id,
			Inventory: true,
			Trunk:     models.TrunkPatch{Status: status, Technology: techIAX},
		}
	case techSIP:
		if strings.EqualFold(evt["Description"], "trunk") {
			return Fact{
				Kind:      FactTrunk,
				Key:       id,
				Inventory: true,
				Trunk:     models.TrunkPatch{Status: status, Technology: techSIP},
			}
		}

		return Fact{
			Kind:      FactEndpoint,
			Key:       id,
			Inventory: true,
			Endpoint:  models.EndpointPatch{Status: status, Technology: techSIP},
		}
	}

	return Fact{}
}

func normalizeOutboundRegistration(evt ami.Event) Fact {
	id := evt.Get(outboundRegIDFields...)
	if id == "" {
		return Fact{}
	}

	return Fact{
		Kind:      FactTrunk,
		Key:       id,
		Inventory: true,
		Trunk: models.TrunkPatch{
			Status:     strings.TrimSpace(evt.Get(registryStatusFields...)),
			Technology: techPJSIP,
		},
	}
}

// normalizeRegistry preserves the upstream's free-text reason verbatim,
// trimmed of surrounding whitespace.
func normalizeRegistry(evt ami.Event) Fact {
	id := evt.Get(registryIDFields...)
	if id == "" {
		return Fact{}
	}

	return Fact{
		Kind:  FactTrunk,
		Key:   id,
		Trunk: models.TrunkPatch{Status: strings.TrimSpace(evt.Get(registryStatusFields...))},
	}
}

func normalizeNewChannel(evt ami.Event) Fact {
	uid := evt["Uniqueid"]
	if uid == "" {
		return Fact{}
	}

	return Fact{
		Kind: FactSession,
		Key:  uid,
		Session: models.SessionPatch{
			Originator: evt.Get(callerFields...),
			ChannelRef: evt["Channel"],
			State:      orDefault(evt["ChannelStateDesc"], statusUnknown),
			Start:      true,
		},
	}
}

func normalizeNewState(evt ami.Event) Fact {
	uid := evt["Uniqueid"]
	if uid == "" || evt["ChannelStateDesc"] == "" {
		return Fact{}
	}

	return Fact{
		Kind:    FactSession,
		Key:     uid,
		Session: models.SessionPatch{State: evt["ChannelStateDesc"]},
	}
}

func normalizeBridge(evt ami.Event, entered bool) Fact {
	uid := evt.Get(bridgeKeyFields...)
	if uid == "" {
		return Fact{}
	}

	return Fact{
		Kind:    FactSession,
		Key:     uid,
		Session: models.SessionPatch{Bridged: &entered},
	}
}

func normalizeHangup(evt ami.Event) Fact {
	uid := evt["Uniqueid"]
	if uid == "" {
		return Fact{}
	}

	return Fact{
		Kind:   FactSessionEnd,
		Key:    uid,
		Reason: orDefault(evt["Cause"], models.ReasonHangup),
	}
}

// normalizeChannelRow handles one row of the active-channel listing. The
// caller/connected-line orientation follows the listing's perspective: the
// caller fields name the far end being rung.
func normalizeChannelRow(evt ami.Event) Fact {
	uid := evt["Uniqueid"]
	if uid == "" {
		return Fact{}
	}

	if app := evt["Application"]; app != "" {
		if _, ok := trackedChannelApps[app]; !ok {
			return Fact{}
		}
	}

	return Fact{
		Kind:      FactSession,
		Key:       uid,
		Inventory: true,
		Session: models.SessionPatch{
			Originator:  evt.Get(connectedFields...),
			Destination: orDefault(evt.Get(callerFields...), "Anonymous"),
			ChannelRef:  evt["Channel"],
			State:       orDefault(evt["ChannelStateDesc"], "Active"),
			Start:       true,
		},
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
