package device

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/swoga/zyxel-webctl/form"
	"github.com/swoga/zyxel-webctl/model"
	"go.uber.org/zap/zaptest"
)

const (
	testUser     = "admin"
	testPassword = "1234"
	acceptBody   = "<html><body>OK</body></html>"
)

type post struct {
	path string
	form *form.Snapshot
}

func (p post) get(name string) string {
	v, _ := p.form.Get(name)
	return v
}

func newTestSession(t *testing.T, h http.Handler, dialect model.Dialect) *Session {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	s, err := New(zaptest.NewLogger(t), Options{
		Address:  srv.URL,
		Username: testUser,
		Password: testPassword,
		Dialect:  dialect,
	})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return s
}

func readForm(t *testing.T, r *http.Request) *form.Snapshot {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.Errorf("failed to read body: %v", err)
		return form.New()
	}
	snap, err := form.Parse(string(body))
	if err != nil {
		t.Errorf("failed to parse body %q: %v", body, err)
		return form.New()
	}
	return snap
}

// recorder serves static pages and records every submission.
type recorder struct {
	t      *testing.T
	mu     sync.Mutex
	pages  map[string]string
	status map[string]int
	answer string
	gets   []string
	posts  []post
	// onPost may change pages after a submission, called with the lock held
	onPost func(p post)
}

func newRecorder(t *testing.T, pages map[string]string) *recorder {
	return &recorder{
		t:      t,
		pages:  pages,
		status: map[string]int{},
		answer: acceptBody,
	}
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	uri := r.URL.RequestURI()
	if r.Method == http.MethodPost {
		p := post{path: r.URL.Path, form: readForm(rec.t, r)}
		rec.posts = append(rec.posts, p)
		if rec.onPost != nil {
			rec.onPost(p)
		}
		if code, ok := rec.status[uri]; ok {
			w.WriteHeader(code)
			return
		}
		if r.URL.Path == loginAction {
			w.Header().Set("Location", "/")
			w.WriteHeader(http.StatusSeeOther)
			return
		}
		io.WriteString(w, rec.answer)
		return
	}

	rec.gets = append(rec.gets, uri)
	if code, ok := rec.status[uri]; ok {
		w.WriteHeader(code)
		return
	}
	body, ok := rec.pages[uri]
	if !ok {
		http.NotFound(w, r)
		return
	}
	io.WriteString(w, body)
}

func (rec *recorder) postsTo(path string) []post {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var posts []post
	for _, p := range rec.posts {
		if p.path == path {
			posts = append(posts, p)
		}
	}
	return posts
}

type fakePort struct {
	name    string
	enabled bool
	speed   string
	pvid    int
	ingress bool
	trunk   bool
	frame   string
}

type fakeVLAN struct {
	id     int
	name   string
	active bool
	tagged map[int]bool
}

// fakeGS1920 keeps switch state and renders it the way the gs1920 web
// interface does. Submissions replace the complete state of a page.
type fakeGS1920 struct {
	t  *testing.T
	mu sync.Mutex

	ports      []*fakePort
	vlans      []*fakeVLAN
	general    map[string]string
	daylight   bool
	dialogOpen bool
	marked     string
	// frozen records submissions without applying them
	frozen bool
	// missing pages answer 404
	missing map[string]bool
	// replyStatus answers a VLAN button with this status after applying it
	replyStatus map[string]int
	// refused VLAN buttons are answered with an error page and not applied
	refused map[string]bool

	posts []post
}

func newFakeGS1920(t *testing.T, numPorts int) *fakeGS1920 {
	f := &fakeGS1920{
		t: t,
		general: map[string]string{
			"rpGeneral_Ipt_SystemName":  "sw-core",
			"rpGeneral_Ipt_Location":    "rack 1",
			"rpGeneral_Ipt_ContactName": "noc",
			"rpGeneral_Ipt_TimeSvrIP?1": "192.0.2.10",
			"rpGeneral_Ipt_TimeSvrIP?2": "192.0.2.11",
			"rpGeneral_Ipt_TimeSvrIP?3": "",
			"rpGeneral_Slt_TimeZone":    "00000018",
		},
		daylight:    true,
		missing:     map[string]bool{},
		replyStatus: map[string]int{},
		refused:     map[string]bool{},
	}
	for i := 1; i <= numPorts; i++ {
		f.ports = append(f.ports, &fakePort{
			name:    fmt.Sprintf("port%d", i),
			enabled: true,
			speed:   "00000000",
			pvid:    1,
			frame:   "00000000",
		})
	}
	f.vlans = []*fakeVLAN{{id: 1, name: "default", active: true, tagged: map[int]bool{}}}
	return f
}

func (f *fakeGS1920) session() *Session {
	return newTestSession(f.t, f, model.DialectAuto)
}

func (f *fakeGS1920) postsTo(path string) []post {
	f.mu.Lock()
	defer f.mu.Unlock()
	var posts []post
	for _, p := range f.posts {
		if p.path == path {
			posts = append(posts, p)
		}
	}
	return posts
}

func (f *fakeGS1920) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/" {
		io.WriteString(w, `<html><head><title>GS1920-24HPv2</title></head><body>login</body></html>`)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == loginAction {
		snap := readForm(f.t, r)
		user, _ := snap.Get("rpAuthForm_Ipt_UserName")
		pass, _ := snap.Get("rpAuthForm_Ipt_Password")
		if user != testUser || pass != testPassword {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "1", Path: "/"})
		w.Header().Set("Location", "/")
		w.WriteHeader(http.StatusSeeOther)
		return
	}

	if _, err := r.Cookie("session"); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if r.Method == http.MethodPost {
		snap := readForm(f.t, r)
		f.posts = append(f.posts, post{path: r.URL.Path, form: snap})
		if f.frozen {
			io.WriteString(w, acceptBody)
			return
		}
		num, _ := snap.Get("rpVlantag_HidBtn_NumID")
		if r.URL.Path == "/Forms/rpVlantag_1" && f.refused[num] {
			io.WriteString(w, "<html><body>Error: refused</body></html>")
			return
		}
		if err := f.apply(r.URL.Path, snap); err != "" {
			io.WriteString(w, "<html><body>Error: "+err+"</body></html>")
			return
		}
		if code, ok := f.replyStatus[num]; ok && r.URL.Path == "/Forms/rpVlantag_1" {
			w.WriteHeader(code)
			return
		}
		io.WriteString(w, acceptBody)
		return
	}

	if f.missing[r.URL.Path] {
		http.NotFound(w, r)
		return
	}

	switch r.URL.Path {
	case "/rpSysinfo.html":
		io.WriteString(w, f.sysinfoPage())
	case "/rpPort.html":
		io.WriteString(w, f.portPage())
	case "/rpVlanport.html":
		io.WriteString(w, f.vlanPortPage())
	case "/rpVlantag.html":
		io.WriteString(w, f.tagPage())
	case "/rpVlanstatusStatistics.html":
		io.WriteString(w, f.statusPage())
	case "/rpGeneral.html":
		io.WriteString(w, f.generalPage())
	case "/rpLacpsetting.html":
		io.WriteString(w, lacpPage)
	case "/rpSyslog.html":
		io.WriteString(w, syslogPage)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeGS1920) apply(path string, snap *form.Snapshot) string {
	button := func(name string) string {
		v, _ := snap.Get(name)
		return v
	}

	switch path {
	case "/Forms/rpPort_1":
		if button("rpPort_HidBtn_NumID") != "1" {
			return "no apply"
		}
		for i, p := range f.ports {
			id := strconv.Itoa(i + 1)
			p.enabled = snap.Has("rpPort_Chk_PortActive", "?"+id)
			p.name, _ = snap.Get("rpPort_Ipt_PortName?" + id)
			speed, ok := snap.Get("rpPort_Slt_Speed?" + id)
			if !ok {
				speed = "00000000"
			}
			p.speed = speed
		}
	case "/Forms/rpVlanport_1":
		if button("rpVlanport_HidBtn_NumID") != "1" {
			return "no apply"
		}
		for i, p := range f.ports {
			id := strconv.Itoa(i + 1)
			pvid, err := strconv.Atoi(button("rpVlanport_Ipt_PVID?" + id))
			if err != nil {
				pvid = 1
			}
			p.pvid = pvid
			p.ingress = snap.Has("rpVlanport_Chk_Ingress", "?"+id)
			p.trunk = snap.Has("rpVlanport_Chk_VLANTrunking", "?"+id)
			frame, ok := snap.Get("rpVlanport_Slt_AcceptableFrame?" + id)
			if !ok {
				frame = "00000000"
			}
			p.frame = frame
		}
	case "/Forms/rpVlantag_1":
		return f.applyTag(snap)
	case "/Forms/rpGeneral_1":
		if button("rpGeneral_HidBtn_NumID") != "1" {
			return "no apply"
		}
		for name := range f.general {
			f.general[name], _ = snap.Get(name)
		}
		f.daylight = snap.Has("rpGeneral_Chk_DaylightSaving", "on")
	}
	return ""
}

func (f *fakeGS1920) applyTag(snap *form.Snapshot) string {
	num, _ := snap.Get("rpVlantag_HidBtn_NumID")
	switch num {
	case "2":
		f.dialogOpen = true
	case "5":
		if !f.dialogOpen {
			return "dialog not open"
		}
		f.dialogOpen = false
		idValue, _ := snap.Get("rpVlantag_Toggle_Ipt_VlanGroupID")
		id, err := strconv.Atoi(idValue)
		if err != nil {
			return "invalid VID"
		}
		name, _ := snap.Get("rpVlantag_Toggle_Ipt_Name")
		v := &fakeVLAN{id: id, name: name, active: snap.Has("rpVlantag_Toggle_Chk_Active", "on"), tagged: map[int]bool{}}
		for i := range f.ports {
			id := strconv.Itoa(i + 1)
			if snap.Has("rpVlantag_Toggle_Rdo_Control?"+id, "1") && snap.Has("rpVlantag_Toggle_Chk_Tagging", "?"+id) {
				v.tagged[i+1] = true
			}
		}
		for i, existing := range f.vlans {
			if existing.id == id {
				f.vlans[i] = v
				return ""
			}
		}
		f.vlans = append(f.vlans, v)
	case "4":
		f.marked, _ = snap.Get("rpVlantag_Chk_TabDel")
	case "7":
		chk, _ := snap.Get("rpVlantag_Chk_TabDel")
		if chk == "" || chk != f.marked {
			return "nothing marked"
		}
		index, err := strconv.Atoi(strings.TrimPrefix(chk, "?"))
		if err != nil || index < 1 || index > len(f.vlans) {
			return "invalid index"
		}
		f.vlans = append(f.vlans[:index-1], f.vlans[index:]...)
		f.marked = ""
	default:
		return "unknown button"
	}
	return ""
}

func (f *fakeGS1920) vlan(id int) *fakeVLAN {
	for _, v := range f.vlans {
		if v.id == id {
			return v
		}
	}
	return nil
}

func checked(b bool) string {
	if b {
		return " CHECKED"
	}
	return ""
}

func selected(b bool) string {
	if b {
		return " SELECTED"
	}
	return ""
}

func (f *fakeGS1920) sysinfoPage() string {
	return `<html><body><table>
<tr><td class="label">System Name</td><td class="value">` + f.general["rpGeneral_Ipt_SystemName"] + `</td></tr>
<tr><td class="label">Product Model</td><td class="value">GS1920-24HPv2</td></tr>
<tr><td class="label">F/W Version</td><td class="value">V4.70(ABMH.6) | 03/12/2021</td></tr>
<tr><td class="label">Ethernet Address</td><td class="value">bc:99:11:00:00:01</td></tr>
</table></body></html>`
}

func (f *fakeGS1920) portPage() string {
	var b strings.Builder
	b.WriteString(`<html><body><FORM NAME="rpPort" ACTION="/Forms/rpPort_1" METHOD="POST"><table>`)
	for i, p := range f.ports {
		id := i + 1
		fmt.Fprintf(&b, `<tr><td>%d</td><td><INPUT TYPE="CHECKBOX" NAME="rpPort_Chk_PortActive" VALUE="?%d"%s></td>`, id, id, checked(p.enabled))
		fmt.Fprintf(&b, `<td><INPUT TYPE="TEXT" NAME="rpPort_Ipt_PortName?%d" VALUE="%s" MAXLENGTH="32"></td>`, id, p.name)
		fmt.Fprintf(&b, `<td><SELECT NAME="rpPort_Slt_Speed?%d">`, id)
		for _, opt := range [][2]string{{"00000000", "Auto"}, {"00000003", "1000M/Full"}, {"00000005", "100M/Full"}} {
			fmt.Fprintf(&b, `<OPTION VALUE=%s%s>%s`, opt[0], selected(opt[0] == p.speed), opt[1])
		}
		b.WriteString("</SELECT></td></tr>\n")
	}
	b.WriteString(`</table><INPUT TYPE="HIDDEN" NAME="rpPort_HidBtn_NumID" VALUE="0">`)
	b.WriteString(`<INPUT TYPE="BUTTON" NAME="rpPort_Btn_Apply" VALUE="Apply"></FORM></body></html>`)
	return b.String()
}

func (f *fakeGS1920) vlanPortPage() string {
	var b strings.Builder
	b.WriteString(`<html><body><FORM NAME="rpVlanport" ACTION="/Forms/rpVlanport_1" METHOD="POST"><table>`)
	for i, p := range f.ports {
		id := i + 1
		fmt.Fprintf(&b, `<tr><td>%d</td><td><INPUT TYPE="TEXT" NAME="rpVlanport_Ipt_PVID?%d" VALUE="%d" SIZE="4"></td>`, id, id, p.pvid)
		fmt.Fprintf(&b, `<td><INPUT TYPE="CHECKBOX" NAME="rpVlanport_Chk_Ingress" VALUE="?%d"%s></td>`, id, checked(p.ingress))
		fmt.Fprintf(&b, `<td><INPUT TYPE="CHECKBOX" NAME="rpVlanport_Chk_VLANTrunking" VALUE="?%d"%s></td>`, id, checked(p.trunk))
		fmt.Fprintf(&b, `<td><SELECT NAME="rpVlanport_Slt_AcceptableFrame?%d">`, id)
		for _, opt := range [][2]string{{"00000000", "All"}, {"00000001", "Tag Only"}, {"00000002", "Untag Only"}} {
			fmt.Fprintf(&b, `<OPTION VALUE="%s"%s>%s`, opt[0], selected(opt[0] == p.frame), opt[1])
		}
		b.WriteString("</SELECT></td></tr>\n")
	}
	b.WriteString(`</table><INPUT TYPE="HIDDEN" NAME="rpVlanport_HidBtn_NumID" VALUE="0"></FORM></body></html>`)
	return b.String()
}

func (f *fakeGS1920) tagPage() string {
	var b strings.Builder
	b.WriteString(`<html><body><table><thead><tr><th>Del</th><th>VID</th><th>Active</th><th>Name</th></tr></thead><tbody>`)
	for i, v := range f.vlans {
		state := "OFF"
		if v.active {
			state = "ON"
		}
		fmt.Fprintf(&b, "<tr>\n\t<td><INPUT TYPE=\"CHECKBOX\" NAME=\"rpVlantag_Chk_TabDel\" VALUE=\"?%d\">\n\t\t<label>&nbsp;</label>\n\t</td>\n", i+1)
		fmt.Fprintf(&b, "\t<td>%d   </td>\n\t<td><span class=\"status-%s\">%s</span></td>\n", v.id, strings.ToLower(state), state)
		fmt.Fprintf(&b, "\t<td style=\"text-align:left\" class=\"word-break\">%s</td>\n</tr>\n", v.name)
	}
	b.WriteString(`</tbody></table><INPUT TYPE="HIDDEN" NAME="rpVlantag_HidBtn_NumID" VALUE="0"></body></html>`)
	return b.String()
}

func (f *fakeGS1920) statusPage() string {
	var b strings.Builder
	b.WriteString(`<html><body><table>`)
	for i, v := range f.vlans {
		var untagged, tagged []int
		for j, p := range f.ports {
			if p.pvid == v.id {
				untagged = append(untagged, j+1)
			}
		}
		for port := range v.tagged {
			tagged = append(tagged, port)
		}
		fmt.Fprintf(&b, `<tr><td><div align=center><a href='US/%d/rpvlanstatusStatisticsDetail.html'>%d</a></div></td>`, v.id, i+1)
		fmt.Fprintf(&b, `<td><div align=center>%d</div></td><td><div align=center>%s</div></td>`, v.id, v.name)
		fmt.Fprintf(&b, `<td><div align=center>%s</div></td><td><div align=center>%s</div></td>`, portRanges(untagged), portRanges(tagged))
		b.WriteString("<td><div align=center>0:00:10</div></td><td><div align=center>Static</div></td></tr>\n")
	}
	b.WriteString(`</table></body></html>`)
	return b.String()
}

func (f *fakeGS1920) generalPage() string {
	var b strings.Builder
	b.WriteString(`<html><body><FORM NAME="rpGeneral" ACTION="/Forms/rpGeneral_1" METHOD="POST">`)
	for _, name := range []string{
		"rpGeneral_Ipt_SystemName",
		"rpGeneral_Ipt_Location",
		"rpGeneral_Ipt_ContactName",
		"rpGeneral_Ipt_TimeSvrIP?1",
		"rpGeneral_Ipt_TimeSvrIP?2",
		"rpGeneral_Ipt_TimeSvrIP?3",
	} {
		fmt.Fprintf(&b, `<INPUT TYPE="TEXT" NAME="%s" VALUE="%s">`+"\n", name, f.general[name])
	}
	b.WriteString(`<SELECT NAME="rpGeneral_Slt_TimeZone">`)
	for _, opt := range [][2]string{{"00000013", "UTC-5"}, {"00000018", "UTC"}, {"00000019", "UTC+1"}} {
		fmt.Fprintf(&b, `<OPTION VALUE="%s"%s>%s`, opt[0], selected(opt[0] == f.general["rpGeneral_Slt_TimeZone"]), opt[1])
	}
	b.WriteString("</SELECT>\n")
	fmt.Fprintf(&b, `<INPUT TYPE="CHECKBOX" NAME="rpGeneral_Chk_DaylightSaving" VALUE="on"%s>`, checked(f.daylight))
	b.WriteString(`<INPUT TYPE="HIDDEN" NAME="rpGeneral_HidBtn_NumID" VALUE="0"></FORM></body></html>`)
	return b.String()
}

const lacpPage = `<html><body><FORM NAME="rpLacpsetting" ACTION="/Forms/rpLacpsetting_1" METHOD="POST">
<INPUT TYPE="CHECKBOX" NAME="rpLacpsetting_Chk_GroupActive" VALUE="?1" CHECKED>
<SELECT NAME="rpLacpsetting_Slt_Criteria?1,1"><OPTION VALUE="00000001" SELECTED>src-mac<OPTION VALUE="00000003">src-dst-mac</SELECT>
<INPUT TYPE="CHECKBOX" NAME="rpLacpsetting_Chk_GroupActive" VALUE="?2">
<SELECT NAME="rpLacpsetting_Slt_Criteria?2,1"><OPTION VALUE="00000001" SELECTED>src-mac<OPTION VALUE="00000003">src-dst-mac</SELECT>
<SELECT NAME="rpLacpsetting_Slt_Group?1"><OPTION VALUE="0">-<OPTION VALUE="T1" SELECTED>T1<OPTION VALUE="T2">T2</SELECT>
<SELECT NAME="rpLacpsetting_Slt_Group?2"><OPTION VALUE="0" SELECTED>-<OPTION VALUE="T1">T1<OPTION VALUE="T2">T2</SELECT>
<SELECT NAME="rpLacpsetting_Slt_Group?3"><OPTION VALUE="0" SELECTED>-<OPTION VALUE="T1">T1<OPTION VALUE="T2">T2</SELECT>
<INPUT TYPE="HIDDEN" NAME="rpLacpsetting_HidBtn_NumID" VALUE="0">
</FORM></body></html>`

const syslogPage = `<html><body><FORM NAME="rpSyslog" ACTION="/Forms/rpSyslog_1" METHOD="POST">
<INPUT TYPE="CHECKBOX" NAME="rpSyslog_Chk_GlobalActive">
<INPUT TYPE="CHECKBOX" NAME="rpSyslog_Chk_TypeActive" VALUE="?1" CHECKED>
<INPUT TYPE="CHECKBOX" NAME="rpSyslog_Chk_TypeActive" VALUE="?2">
<SELECT NAME="rpSyslog_Slt_Facility?1"><OPTION VALUE="00000000" SELECTED>local 1<OPTION VALUE="00000001">local 2</SELECT>
<INPUT TYPE="HIDDEN" NAME="rpSyslog_HidBtn_NumID" VALUE="0">
</FORM></body></html>`

// portRanges renders sorted ports the way the status page does, "1-3,5".
func portRanges(ports []int) string {
	sort.Ints(ports)
	var parts []string
	for i := 0; i < len(ports); {
		j := i
		for j+1 < len(ports) && ports[j+1] == ports[j]+1 {
			j++
		}
		if i == j {
			parts = append(parts, strconv.Itoa(ports[i]))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", ports[i], ports[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}
