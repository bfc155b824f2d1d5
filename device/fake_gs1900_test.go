package device

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/swoga/zyxel-webctl/model"
)

type gs1900Port struct {
	name    string
	enabled bool
	pvid    int
	frame   string
	ingress bool
	trunk   bool
}

// fakeGS1900 renders the dispatcher pages and hands out a fresh XSSID with
// every page. A submission must carry the latest token.
type fakeGS1900 struct {
	t  *testing.T
	mu sync.Mutex

	hostname string
	ports    []*gs1900Port
	vlans    map[int]string
	authID   string
	issued   string
	tokens   int
	// noToken lists commands rendered without a token
	noToken map[string]bool

	posts []post
}

func newFakeGS1900(t *testing.T, numPorts int) *fakeGS1900 {
	f := &fakeGS1900{
		t:        t,
		hostname: "sw-edge",
		vlans:    map[int]string{1: "default"},
		noToken:  map[string]bool{},
	}
	for i := 1; i <= numPorts; i++ {
		f.ports = append(f.ports, &gs1900Port{enabled: true, pvid: 1, frame: "All"})
	}
	return f
}

func (f *fakeGS1900) session() *Session {
	return newTestSession(f.t, f, model.DialectAuto)
}

func (f *fakeGS1900) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var cmds []string
	for _, p := range f.posts {
		if cmd := p.get("cmd"); cmd != "" {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

func (f *fakeGS1900) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/" {
		io.WriteString(w, `<html><head><title>GS1900-8HP</title></head></html>`)
		return
	}
	if r.URL.Path != dispatcher {
		http.NotFound(w, r)
		return
	}

	if r.Method == http.MethodGet {
		cmd := r.URL.Query().Get("cmd")
		page, ok := f.page(cmd)
		if !ok {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, page)
		return
	}

	snap := readForm(f.t, r)
	f.posts = append(f.posts, post{path: r.URL.Path, form: snap})
	p := post{form: snap}

	switch {
	case p.get("login") == "true":
		if p.get("username") != testUser || decodePassword(p.get("password")) != testPassword {
			io.WriteString(w, "\n")
			return
		}
		f.authID = "77aa01"
		io.WriteString(w, " "+f.authID+"\n")
		return
	case p.get("login_chk") == "true":
		if f.authID == "" || p.get("authId") != f.authID {
			io.WriteString(w, "FAIL")
			return
		}
		io.WriteString(w, "OK")
		return
	}

	if f.issued == "" || p.get(tokenField) != f.issued {
		io.WriteString(w, "<html>Error: invalid XSSID</html>")
		return
	}
	f.issued = ""

	switch p.get("cmd") {
	case "1285":
		vid, err := strconv.Atoi(p.get("vlanlist"))
		if err != nil {
			io.WriteString(w, "<html>Error: invalid VLAN</html>")
			return
		}
		f.vlans[vid] = p.get("name")
	case "1282":
		vid, _ := strconv.Atoi(p.get("vid"))
		delete(f.vlans, vid)
	case "1292":
		pvid, _ := strconv.Atoi(p.get("pvid"))
		frame := map[string]string{"0": "All", "1": "TagOnly", "2": "UntagOnly"}[p.get("frametype")]
		for _, id := range strings.Split(p.get("portlist"), ",") {
			n, err := strconv.Atoi(id)
			if err != nil || n < 1 || n > len(f.ports) {
				io.WriteString(w, "<html>Error: invalid port</html>")
				return
			}
			port := f.ports[n-1]
			port.pvid = pvid
			port.frame = frame
			port.ingress = p.get("vlan_igrfilter") == "1"
			port.trunk = p.get("vlan_trunk") == "1"
		}
	case "768":
		n, _ := strconv.Atoi(p.get("port"))
		if n < 1 || n > len(f.ports) {
			io.WriteString(w, "<html>Error: invalid port</html>")
			return
		}
		f.ports[n-1].enabled = p.get("state") == "1"
		f.ports[n-1].name = p.get("desc")
	case "512":
		f.hostname = p.get("system_name")
	}
	io.WriteString(w, acceptBody)
}

func (f *fakeGS1900) tokenInput(cmd string) string {
	if f.noToken[cmd] {
		return ""
	}
	f.tokens++
	f.issued = fmt.Sprintf("x%dT", f.tokens)
	return fmt.Sprintf(`<input type="hidden" name="XSSID" value="%s">`, f.issued)
}

func enable(b bool) string {
	if b {
		return "Enable"
	}
	return "Disable"
}

func centered(cells ...string) string {
	var b strings.Builder
	for _, c := range cells {
		fmt.Fprintf(&b, `<td class="font-4" ><div align=center>%s</div></td>`, c)
	}
	return b.String()
}

func (f *fakeGS1900) page(cmd string) (string, bool) {
	var b strings.Builder
	b.WriteString("<html><body><form>")
	b.WriteString(f.tokenInput(cmd))

	switch cmd {
	case "512":
		fmt.Fprintf(&b, `<input type="text" name="system_name" value="%s"><input type="text" name="system_location" value="lab"><input type="text" name="system_contact" value="ops">`, f.hostname)
		b.WriteString(`<table><tr><td class="label">Firmware Version</td><td>V2.70(AAHH.3) | 08/10/2021</td></tr>`)
		b.WriteString(`<tr><td class="label">MAC Address</td><td>bc:99:11:00:00:02</td></tr></table>`)
	case "768":
		b.WriteString("<table>")
		for i, p := range f.ports {
			id := strconv.Itoa(i + 1)
			fmt.Fprintf(&b, `<tr><td><input type="checkbox" name="port" value="%s"></td>`, id)
			b.WriteString(centered(id, p.name, enable(p.enabled), "Up", "1000M", "Full", "Disable"))
			b.WriteString("</tr>\n")
		}
		b.WriteString("</table>")
	case "1283":
		b.WriteString("<table><tr>" + centered("VLAN", "Name", "Type") + "</tr>")
		for _, vid := range f.vlanIDs() {
			kind := "Static"
			if vid == 1 {
				kind = "Default"
			}
			b.WriteString("<tr>" + centered(strconv.Itoa(vid), f.vlans[vid], kind) + "</tr>\n")
		}
		b.WriteString("</table>")
	case "1290":
		b.WriteString("<table>")
		for i, p := range f.ports {
			id := strconv.Itoa(i + 1)
			fmt.Fprintf(&b, `<tr><td><input type="checkbox" name="port" value="%s"></td>`, id)
			b.WriteString(centered(id, strconv.Itoa(p.pvid), p.frame, enable(p.ingress), enable(p.trunk)))
			b.WriteString("</tr>\n")
		}
		b.WriteString("</table>")
	case "1282", "1284", "1291":
		b.WriteString(`<input type="text" name="vlanlist" value="">`)
	default:
		return "", false
	}
	b.WriteString("</form></body></html>")
	return b.String(), true
}

func (f *fakeGS1900) vlanIDs() []int {
	ids := make([]int, 0, len(f.vlans))
	for vid := range f.vlans {
		ids = append(ids, vid)
	}
	sort.Ints(ids)
	return ids
}

// decodePassword reverses EncodePassword.
func decodePassword(encoded string) string {
	r := []rune(encoded)
	if len(r) != encodedPasswordLength {
		return ""
	}
	length := int(r[tensPosition-1]-'0')*10 + int(r[onesPosition-1]-'0')
	chars := make([]rune, 0, length)
	for i := 5; len(chars) < length && i <= len(r); i += 5 {
		chars = append(chars, r[i-1])
	}
	for i, j := 0, len(chars)-1; i < j; i, j = i+1, j-1 {
		chars[i], chars[j] = chars[j], chars[i]
	}
	return string(chars)
}
