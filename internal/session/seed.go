package session

// Default is the session seeded on first run: a home tab plus a small
// reading group, with the first group member active.
func Default(homeURL string) Snapshot {
	return Snapshot{
		Name: "default",
		Tabs: []Tab{
			{Title: "Home", URL: homeURL},
			{
				Title: "Reading",
				Group: true,
				Children: []Tab{
					{Title: "WebKitGTK", URL: "https://webkitgtk.org", Active: true},
					{Title: "GNOME", URL: "https://www.gnome.org"},
					{Title: "Fedora", URL: "https://fedoraproject.org"},
				},
			},
		},
	}
}

// Template resolves a named session reachable as owl://session/<slug>.
// The first tab of a template becomes active when opened.
func Template(slug string) (Snapshot, bool) {
	switch slug {
	case "research-notes":
		return template("Research Notes",
			Tab{Title: "WebKitGTK", URL: "https://webkitgtk.org"},
			Tab{Title: "Rust Book", URL: "https://doc.rust-lang.org/book/"},
			Tab{Title: "Fedora Docs", URL: "https://docs.fedoraproject.org"},
		), true
	case "release-planning":
		return template("Release Planning",
			Tab{Title: "GNOME Release", URL: "https://release.gnome.org"},
			Tab{Title: "Fedora Schedule", URL: "https://fedorapeople.org/groups/schedule/"},
			Tab{Title: "Issue Tracker", URL: "https://gitlab.gnome.org"},
		), true
	case "wayland-checklist":
		return template("Wayland Checklist",
			Tab{Title: "Wayland", URL: "https://wayland.freedesktop.org"},
			Tab{Title: "GTK4", URL: "https://www.gtk.org"},
			Tab{Title: "libadwaita", URL: "https://gnome.pages.gitlab.gnome.org/libadwaita/"},
		), true
	}
	return Snapshot{}, false
}

func template(title string, tabs ...Tab) Snapshot {
	tabs[0].Active = true
	return Snapshot{
		Name: title,
		Tabs: []Tab{{Title: title, Group: true, Children: tabs}},
	}
}
