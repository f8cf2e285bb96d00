package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/gen2brain/audiodev"
)

// endpointJSON is the JSON form of an endpoint.
type endpointJSON struct {
	Index                 int    `json:"index"`
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	Flow                  string `json:"flow"`
	State                 string `json:"state"`
	Default               bool   `json:"default"`
	DefaultCommunications bool   `json:"default_communications"`
	Mute                  *bool  `json:"mute,omitempty"`
	Volume                *int   `json:"volume,omitempty"`
}

type eventJSON struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Flow  string `json:"flow,omitempty"`
	Role  string `json:"role,omitempty"`
	State string `json:"state,omitempty"`
}

type levelJSON struct {
	Level int `json:"level"`
}

func toJSON(ep audiodev.Endpoint) endpointJSON {
	return endpointJSON{
		Index:                 ep.Ordinal,
		ID:                    ep.ID,
		Name:                  ep.Name,
		Flow:                  ep.Flow.String(),
		State:                 ep.State.String(),
		Default:               ep.IsMultimediaDefault,
		DefaultCommunications: ep.IsCommunicationsDefault,
	}
}

// printer writes command results as text or JSON lines.
type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(w io.Writer, format string) *printer {
	return &printer{w: w, json: format == "json"}
}

func (p *printer) encode(v any) error {
	return json.NewEncoder(p.w).Encode(v)
}

// Endpoints prints a table of endpoints, or a JSON array.
func (p *printer) Endpoints(eps []audiodev.Endpoint) error {
	if p.json {
		out := make([]endpointJSON, 0, len(eps))
		for _, ep := range eps {
			out = append(out, toJSON(ep))
		}

		return p.encode(out)
	}

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tFLOW\tDEFAULT\tNAME\tID")

	for _, ep := range eps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", ep.Ordinal, ep.Flow, defaultMarks(ep), ep.Name, ep.ID)
	}

	return tw.Flush()
}

// Endpoint prints one endpoint.
func (p *printer) Endpoint(ep audiodev.Endpoint) error {
	if p.json {
		return p.encode(toJSON(ep))
	}

	_, err := fmt.Fprintf(p.w, "Index:   %d\nName:    %s\nID:      %s\nFlow:    %s\nDefault: %s\n",
		ep.Ordinal, ep.Name, ep.ID, ep.Flow, defaultMarks(ep))

	return err
}

// View prints an endpoint with its live mute and volume.
func (p *printer) View(v audiodev.DeviceView) error {
	if p.json {
		out := toJSON(v.Endpoint)
		out.Mute, out.Volume = &v.Mute, &v.Volume

		return p.encode(out)
	}

	if err := p.Endpoint(v.Endpoint); err != nil {
		return err
	}

	_, err := fmt.Fprintf(p.w, "Mute:    %t\nVolume:  %d%%\n", v.Mute, v.Volume)

	return err
}

// Event prints one change notification.
func (p *printer) Event(ev audiodev.Event) error {
	if !p.json {
		_, err := fmt.Fprintln(p.w, ev)

		return err
	}

	out := eventJSON{Kind: ev.Kind.String(), ID: ev.ID}
	switch ev.Kind {
	case audiodev.EventDefaultChanged:
		out.Flow, out.Role = ev.Flow.String(), ev.Role.String()
	case audiodev.EventStateChanged:
		out.State = ev.State.String()
	}

	return p.encode(out)
}

// Value prints a single named value, as a bare value in text form.
func (p *printer) Value(name string, v any) error {
	if p.json {
		return p.encode(map[string]any{name: v})
	}

	_, err := fmt.Fprintln(p.w, v)

	return err
}

// Level prints one meter reading.
func (p *printer) Level(level int) error {
	if p.json {
		return p.encode(levelJSON{Level: level})
	}

	_, err := fmt.Fprintf(p.w, "%3d%% %s\n", level, bar(level))

	return err
}

func defaultMarks(ep audiodev.Endpoint) string {
	switch {
	case ep.IsMultimediaDefault && ep.IsCommunicationsDefault:
		return "both"
	case ep.IsMultimediaDefault:
		return "multimedia"
	case ep.IsCommunicationsDefault:
		return "communications"
	}

	return "-"
}

// bar renders a level as a 50 column bar.
func bar(level int) string {
	n := max(0, min(level, 100)) / 2
	b := make([]byte, 50)
	for i := range b {
		if i < n {
			b[i] = '#'
		} else {
			b[i] = '.'
		}
	}

	return string(b)
}
