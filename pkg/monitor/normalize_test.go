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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aztell/callwatch/pkg/ami"
	"github.com/aztell/callwatch/pkg/models"
)

func TestNormalizePeerStatusAliases(t *testing.T) {
	tests := []struct {
		name       string
		event      ami.Event
		wantKey    string
		wantStatus string
		wantTech   string
	}{
		{
			name:       "primary fields",
			event:      ami.Event{"Event": "PeerStatus", "Peer": "SIP/101", "PeerStatus": "Reachable", "ChannelType": "SIP"},
			wantKey:    "SIP/101",
			wantStatus: "Reachable",
			wantTech:   "SIP",
		},
		{
			name:       "endpoint name and status text fallbacks",
			event:      ami.Event{"Event": "PeerStatus", "EndpointName": "102", "StatusText": "Unreachable", "ChannelDriver": "PJSIP"},
			wantKey:    "102",
			wantStatus: "Unreachable",
			wantTech:   "PJSIP",
		},
		{
			name:       "missing status defaults to Unknown",
			event:      ami.Event{"Event": "PeerStatus", "Channel": "103"},
			wantKey:    "103",
			wantStatus: "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fact := Normalize(tt.event)

			require.Equal(t, FactEndpoint, fact.Kind)
			assert.Equal(t, tt.wantKey, fact.Key)
			assert.Equal(t, tt.wantStatus, fact.Endpoint.Status)
			assert.Equal(t, tt.wantTech, fact.Endpoint.Technology)
		})
	}
}

func TestNormalizePeerStatusWithoutIdentity(t *testing.T) {
	fact := Normalize(ami.Event{"Event": "PeerStatus", "PeerStatus": "Reachable"})

	// PeerStatus doubles as an identity fallback, so the status value is
	// accepted as the key rather than dropping the event.
	assert.Equal(t, FactEndpoint, fact.Kind)
	assert.Equal(t, "Reachable", fact.Key)

	fact = Normalize(ami.Event{"Event": "PeerStatus"})
	assert.Equal(t, FactIgnore, fact.Kind)
}

func TestNormalizeEndpointListFiltersOutboundAuths(t *testing.T) {
	fact := Normalize(ami.Event{
		"Event":         "EndpointList",
		"ObjectName":    "trunk-out",
		"OutboundAuths": "1",
		"DeviceState":   "Not in use",
	})
	assert.Equal(t, FactIgnore, fact.Kind)

	fact = Normalize(ami.Event{
		"Event":         "EndpointList",
		"ObjectName":    "201",
		"OutboundAuths": "0",
		"DeviceState":   "In use",
	})
	require.Equal(t, FactEndpoint, fact.Kind)
	assert.Equal(t, "201", fact.Key)
	assert.Equal(t, "In use", fact.Endpoint.Status)
	assert.Equal(t, "PJSIP", fact.Endpoint.Technology)
	assert.True(t, fact.Inventory)
}

func TestNormalizePeerEntryClassification(t *testing.T) {
	tests := []struct {
		name     string
		event    ami.Event
		wantKind FactKind
		wantTech string
	}{
		{
			name:     "IAX peer is a trunk",
			event:    ami.Event{"Event": "PeerEntry", "ObjectName": "gw1", "Channeltype": "IAX", "Status": "OK (12 ms)"},
			wantKind: FactTrunk,
			wantTech: "IAX",
		},
		{
			name:     "SIP peer described as trunk",
			event:    ami.Event{"Event": "PeerEntry", "ObjectName": "carrier", "Channeltype": "SIP", "Description": "trunk", "Status": "OK"},
			wantKind: FactTrunk,
			wantTech: "SIP",
		},
		{
			name:     "plain SIP peer is an endpoint",
			event:    ami.Event{"Event": "PeerEntry", "ObjectName": "105", "Channeltype": "SIP", "Status": "OK"},
			wantKind: FactEndpoint,
			wantTech: "SIP",
		},
		{
			name:     "unknown channel type ignored",
			event:    ami.Event{"Event": "PeerEntry", "ObjectName": "x", "Channeltype": "Skinny"},
			wantKind: FactIgnore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fact := Normalize(tt.event)
			require.Equal(t, tt.wantKind, fact.Kind)

			switch tt.wantKind {
			case FactTrunk:
				assert.Equal(t, tt.wantTech, fact.Trunk.Technology)
				assert.True(t, fact.Inventory)
			case FactEndpoint:
				assert.Equal(t, tt.wantTech, fact.Endpoint.Technology)
			}
		})
	}
}

func TestNormalizeRegistryTrimsStatus(t *testing.T) {
	fact := Normalize(ami.Event{
		"Event":  "Registry",
		"Domain": "sip.provider.net",
		"Status": "  Registered  ",
	})

	require.Equal(t, FactTrunk, fact.Kind)
	assert.Equal(t, "sip.provider.net", fact.Key)
	assert.Equal(t, "Registered", fact.Trunk.Status)
	assert.False(t, fact.Inventory)
}

func TestNormalizeOutboundRegistration(t *testing.T) {
	fact := Normalize(ami.Event{
		"Event":      "OutboundRegistrationDetail",
		"ObjectName": "provider-reg",
		"Status":     "Registered",
	})

	require.Equal(t, FactTrunk, fact.Kind)
	assert.Equal(t, "provider-reg", fact.Key)
	assert.Equal(t, "PJSIP", fact.Trunk.Technology)
	assert.True(t, fact.Inventory)
}

func TestNormalizeSessionLifecycle(t *testing.T) {
	fact := Normalize(ami.Event{
		"Event":            "Newchannel",
		"Uniqueid":         "1700000000.42",
		"CallerIDNum":      "101",
		"Channel":          "PJSIP/101-00000001",
		"ChannelStateDesc": "Ring",
	})
	require.Equal(t, FactSession, fact.Kind)
	assert.Equal(t, "1700000000.42", fact.Key)
	assert.Equal(t, "101", fact.Session.Originator)
	assert.Equal(t, "Ring", fact.Session.State)
	assert.True(t, fact.Session.Start)

	fact = Normalize(ami.Event{
		"Event":            "Newstate",
		"Uniqueid":         "1700000000.42",
		"ChannelStateDesc": "Up",
	})
	require.Equal(t, FactSession, fact.Kind)
	assert.Equal(t, "Up", fact.Session.State)
	assert.False(t, fact.Session.Start)

	fact = Normalize(ami.Event{"Event": "BridgeEnter", "Uniqueid": "1700000000.42"})
	require.Equal(t, FactSession, fact.Kind)
	require.NotNil(t, fact.Session.Bridged)
	assert.True(t, *fact.Session.Bridged)

	fact = Normalize(ami.Event{"Event": "BridgeLeave", "Uniqueid1": "1700000000.42"})
	require.Equal(t, FactSession, fact.Kind)
	require.NotNil(t, fact.Session.Bridged)
	assert.False(t, *fact.Session.Bridged)

	fact = Normalize(ami.Event{"Event": "Hangup", "Uniqueid": "1700000000.42", "Cause": "16"})
	require.Equal(t, FactSessionEnd, fact.Kind)
	assert.Equal(t, "16", fact.Reason)

	fact = Normalize(ami.Event{"Event": "Hangup", "Uniqueid": "1700000000.43"})
	require.Equal(t, FactSessionEnd, fact.Kind)
	assert.Equal(t, models.ReasonHangup, fact.Reason)
}

func TestNormalizeChannelRowApplicationFilter(t *testing.T) {
	fact := Normalize(ami.Event{
		"Event":       "CoreShowChannel",
		"Uniqueid":    "1700000000.50",
		"Application": "MusicOnHold",
	})
	assert.Equal(t, FactIgnore, fact.Kind)

	fact = Normalize(ami.Event{
		"Event":            "CoreShowChannel",
		"Uniqueid":         "1700000000.51",
		"Application":      "Queue",
		"CallerIDNum":      "300",
		"ConnectedLineNum": "101",
		"Channel":          "PJSIP/101-00000002",
	})
	require.Equal(t, FactSession, fact.Kind)
	assert.Equal(t, "101", fact.Session.Originator)
	assert.Equal(t, "300", fact.Session.Destination)
	assert.Equal(t, "Active", fact.Session.State)
	assert.True(t, fact.Inventory)
}

func TestNormalizeChannelRowDefaults(t *testing.T) {
	fact := Normalize(ami.Event{
		"Event":    "CoreShowChannel",
		"Uniqueid": "1700000000.52",
	})

	require.Equal(t, FactSession, fact.Kind)
	assert.Equal(t, "Anonymous", fact.Session.Destination)
	assert.Equal(t, "Active", fact.Session.State)
}

func TestNormalizeBatchCompleteMarkers(t *testing.T) {
	tests := []struct {
		event string
		kind  models.EntityKind
	}{
		{"EndpointListComplete", models.KindEndpoint},
		{"PeerlistComplete", models.KindTrunk},
		{"OutboundRegistrationDetailComplete", models.KindTrunk},
		{"CoreShowChannelsComplete", models.KindSession},
	}

	for _, tt := range tests {
		fact := Normalize(ami.Event{"Event": tt.event})
		require.Equal(t, FactBatchComplete, fact.Kind, tt.event)
		assert.Equal(t, tt.kind, fact.Batch, tt.event)
	}
}

func TestNormalizeUnknownEventIgnored(t *testing.T) {
	fact := Normalize(ami.Event{"Event": "VarSet", "Uniqueid": "1700000000.60"})
	assert.Equal(t, FactIgnore, fact.Kind)

	fact = Normalize(ami.Event{"Response": "Success"})
	assert.Equal(t, FactIgnore, fact.Kind)
}
