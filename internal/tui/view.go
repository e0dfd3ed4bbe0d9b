package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/chronicle/internal/coordinator"
	"github.com/muurk/chronicle/internal/dashboard"
	"github.com/muurk/chronicle/internal/notify"
	"github.com/muurk/chronicle/internal/record"
)

// View renders the current screen
func (m Model) View() string {
	if m.modal != nil {
		return RenderModal(m.modal.view(m.controller(m.modal.kind).Snapshot(), m.width), m.width, m.height)
	}

	sections := []string{m.renderTabs(), m.renderBody()}
	if status := m.renderStatus(); status != "" {
		sections = append(sections, status)
	}
	if toast := m.renderToast(); toast != "" {
		sections = append(sections, toast)
	}

	footer := m.help.View(m.keys)
	if m.confirmDelete != "" {
		footer = ErrorTextStyle.Render(fmt.Sprintf("Delete %s? press y to confirm, any other key to cancel", m.confirmDelete))
	}

	return RenderApplicationContainer(strings.Join(sections, "\n\n"), footer, m.width, m.height)
}

func (m Model) renderTabs() string {
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		if Tab(i) == m.tab {
			tabs[i] = ActiveTabStyle.Render(name)
		} else {
			tabs[i] = InactiveTabStyle.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderBody() string {
	if m.detail != "" {
		return m.renderDetail(m.snap.Detail(m.detail))
	}
	switch m.tab {
	case TabHome:
		return m.renderHome()
	case TabDevices:
		return m.renderDeviceList("Devices", m.snap.Devices)
	default:
		return m.renderSettings()
	}
}

func (m Model) renderHome() string {
	count := "-"
	if m.snap.DevicesLoaded {
		count = fmt.Sprintf("%d", len(m.snap.Devices))
	}
	summary := LabelStyle.Render("Devices") + count + "\n" +
		LabelStyle.Render("Default SSH user") + orDash(m.snap.Settings.Text("user"))

	return m.renderDeviceList("Featured Devices", m.snap.Featured) + "\n\n" + InfoBoxStyle.Render(summary)
}

func (m Model) renderDeviceList(title string, rows []dashboard.DeviceView) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")

	switch {
	case !m.snap.DevicesLoaded && m.snap.DevicesLoading:
		b.WriteString(m.spinner.View() + " Loading devices...")
		return b.String()
	case !m.snap.DevicesLoaded:
		b.WriteString(SubtitleStyle.Render("Device list not loaded. Press r to retry."))
		return b.String()
	case len(rows) == 0:
		b.WriteString(SubtitleStyle.Render("No devices. Press n to add one."))
		return b.String()
	}

	for i, row := range rows {
		text := fmt.Sprintf("%-20s %-16s %-12s %s", row.Name, row.DeviceName, row.Vendor, row.Host)
		b.WriteString(RenderMenuItem(text, i == m.cursor))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderDetail(d dashboard.DeviceDetail) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Device " + d.Name))
	b.WriteString("\n")

	switch {
	case d.Record == nil && d.Loading:
		b.WriteString(m.spinner.View() + " Loading...")
	case d.Record == nil:
		b.WriteString(SubtitleStyle.Render("Details unavailable."))
	default:
		b.WriteString(renderRecord(d.Record))
	}

	var flags []string
	if d.Saving {
		flags = append(flags, "saving")
	}
	if d.Deleting {
		flags = append(flags, "deleting")
	}
	if d.Loading && d.Record != nil {
		flags = append(flags, "refreshing")
	}
	if len(flags) > 0 {
		b.WriteString("\n" + m.spinner.View() + " " + strings.Join(flags, ", "))
	}

	b.WriteString("\n\n")
	switch {
	case d.ConfigLoading:
		b.WriteString(m.spinner.View() + " Pulling configuration...")
	case d.Config != nil:
		b.WriteString(ConfigStyle.Render(strings.Join(d.Config, "\n")))
	default:
		b.WriteString(SubtitleStyle.Render("Press c to pull the running configuration."))
	}
	return b.String()
}

func (m Model) renderSettings() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Global SSH Settings"))
	b.WriteString("\n")
	switch {
	case m.snap.Settings == nil && m.snap.SettingsLoading:
		b.WriteString(m.spinner.View() + " Loading settings...")
	case m.snap.Settings == nil:
		b.WriteString(SubtitleStyle.Render("Settings not loaded. Press r to retry."))
	default:
		b.WriteString(renderRecord(m.snap.Settings))
		b.WriteString("\n\n")
		b.WriteString(SubtitleStyle.Render("Press e to edit."))
	}
	return b.String()
}

func (m Model) renderStatus() string {
	if len(m.snap.Pending) == 0 {
		return ""
	}
	ops := make([]string, len(m.snap.Pending))
	for i, k := range m.snap.Pending {
		ops[i] = describe(k)
	}
	return m.spinner.View() + " " + SubtitleStyle.Render(strings.Join(ops, ", "))
}

func (m Model) renderToast() string {
	if !m.snap.HasNotification {
		return ""
	}
	n := m.snap.Notification
	if n.Kind == notify.KindError {
		return ErrorToastStyle.Render("✗ " + n.Message)
	}
	return SuccessToastStyle.Render("✓ " + n.Message)
}

// renderRecord lists fields in key order with secrets masked
func renderRecord(r record.Record) string {
	lines := make([]string, 0, len(r))
	for _, k := range r.Keys() {
		v := r.Text(k)
		if k == "password" && v != "" {
			v = "********"
		}
		lines = append(lines, LabelStyle.Render(k)+orDash(v))
	}
	return strings.Join(lines, "\n")
}

// describe turns a pending key into a short status phrase
func describe(k coordinator.Key) string {
	return fmt.Sprintf("%s %s", k.Op, strings.TrimPrefix(k.Entity, "device/"))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
