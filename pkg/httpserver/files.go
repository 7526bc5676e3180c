package httpserver

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/nexus-wings/wings/pkg/apierr"
	"github.com/nexus-wings/wings/pkg/files"
)

// queryPath returns the ?path= query parameter, defaulting to the
// workload root.
func queryPath(r *http.Request) string {
	p := r.URL.Query().Get("path")
	if p == "" {
		return "/"
	}
	return p
}

func (s *Server) handleFilesList(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	path, err := files.ValidatePath(s.serverRoot(id), queryPath(r))
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := files.ListDirectory(path)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"files": entries})
}

func (s *Server) handleFileRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	path, err := files.ValidatePath(s.serverRoot(id), queryPath(r))
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := files.ReadFile(path)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"content": string(data)})
}

func (s *Server) handleFileWrite(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Path == "" {
		writeError(w, apierr.Config("path is required"))
		return
	}
	path, err := files.ValidatePath(s.serverRoot(id), body.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := files.WriteFile(path, []byte(body.Content)); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleFileMkdir(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Path == "" {
		writeError(w, apierr.Config("path is required"))
		return
	}
	path, err := files.ValidatePath(s.serverRoot(id), body.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := files.CreateDirectory(path); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleFileRename(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.From == "" || body.To == "" {
		writeError(w, apierr.Config("from and to are required"))
		return
	}
	root := s.serverRoot(id)
	from, err := files.ValidatePath(root, body.From)
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := files.ValidatePath(root, body.To)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := files.RenameEntry(from, to); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleFileDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Paths []string `json:"paths"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Paths) == 0 {
		writeError(w, apierr.Config("paths are required"))
		return
	}
	root := s.serverRoot(id)
	resolved := make([]string, 0, len(body.Paths))
	for _, p := range body.Paths {
		path, err := files.ValidatePath(root, p)
		if err != nil {
			writeError(w, err)
			return
		}
		resolved = append(resolved, path)
	}
	if err := files.DeleteEntries(resolved); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleFileCompress(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Paths       []string `json:"paths"`
		Destination string   `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Paths) == 0 || body.Destination == "" {
		writeError(w, apierr.Config("paths and destination are required"))
		return
	}
	root := s.serverRoot(id)
	resolved := make([]string, 0, len(body.Paths))
	for _, p := range body.Paths {
		path, err := files.ValidatePath(root, p)
		if err != nil {
			writeError(w, err)
			return
		}
		resolved = append(resolved, path)
	}
	dest, err := files.ValidatePath(root, body.Destination)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := files.Compress(resolved, dest); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleFileDecompress(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Path        string `json:"path"`
		Destination string `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Path == "" || body.Destination == "" {
		writeError(w, apierr.Config("path and destination are required"))
		return
	}
	root := s.serverRoot(id)
	archive, err := files.ValidatePath(root, body.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	dest, err := files.ValidatePath(root, body.Destination)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := files.Decompress(archive, dest); err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"success": true})
}

// saveUpload validates the uploaded filename against the workload root
// and writes the part's contents there.
func (s *Server) saveUpload(root string, header *multipart.FileHeader) error {
	path, err := files.ValidatePath(root, header.Filename)
	if err != nil {
		return err
	}
	src, err := header.Open()
	if err != nil {
		return apierr.IO("open uploaded file", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return apierr.IO("read uploaded file", err)
	}
	return files.WriteFile(path, data)
}

func (s *Server) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apierr.Config("invalid multipart body"))
		return
	}
	root := s.serverRoot(id)
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			if err := s.saveUpload(root, header); err != nil {
				writeError(w, err)
				return
			}
		}
	}
	respond(w, http.StatusOK, map[string]bool{"success": true})
}
