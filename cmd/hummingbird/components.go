package main

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/12153/hummingbird"
	"github.com/12153/hummingbird/lib/dom"
)

// CounterProps configures the demo counter.
type CounterProps struct {
	Start int    `json:"start"`
	Step  int    `json:"step"`
	Label string `json:"label"`
}

// Validate defaults a zero step to one and rejects negative steps.
func (p *CounterProps) Validate() error {
	if p.Step == 0 {
		p.Step = 1
	}
	if p.Step < 0 {
		return errors.New("step must be positive")
	}
	return nil
}

// Counter renders a button that counts its clicks.
var Counter = hummingbird.Define("Counter", func(ctx context.Context, el *hummingbird.Element, p CounterProps) error {
	count := p.Start
	label := p.Label
	if label == "" {
		label = "Clicked"
	}

	btn := dom.CreateElement("button", "type", "button", "class", "counter")
	render := func() { dom.SetText(btn, label+" "+strconv.Itoa(count)) }
	render()
	el.Append(btn)
	el.OnNode(btn, dom.EventClick, func(ev *dom.Event) {
		count += p.Step
		render()
	})
	return nil
})

// clock stamps the element with the time it was mounted, in the zone named
// by the "tz" prop.
func clock(now func() time.Time) hummingbird.InitFunc {
	return func(ctx context.Context, el *hummingbird.Element, p hummingbird.Props) error {
		loc := time.UTC
		if name := p.String("tz", ""); name != "" {
			l, err := time.LoadLocation(name)
			if err != nil {
				return err
			}
			loc = l
		}
		el.SetText(now().In(loc).Format(time.Kitchen))
		el.SetAttr("data-mounted", "true")
		return nil
	}
}

// newRegistry holds the components the demo pages use.
func newRegistry(opts ...hummingbird.Option) *hummingbird.Registry {
	reg := hummingbird.NewRegistry(opts...)
	reg.Add(Counter)
	reg.Register("Clock", clock(time.Now))
	return reg
}
