package utils

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	FILE_EXT_SHP = ".shp"
	FILE_EXT_CPG = ".cpg"

	UTF8  = "UTF8"
	UTF_8 = "UTF-8"
)

var (
	ErrNoShpInZip = errors.New("no shp in zip")
	ErrBadZipPath = errors.New("bad file path in zip")
)

func GetUniqSubDir(parentPath string) (path string, err error) {
	path = filepath.Join(parentPath, uuid.NewString())
	err = os.Mkdir(path, os.ModePerm)
	return
}

func GetFilenameWithoutExt(path string) (name string) {
	name = filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(path))
	return
}

// 替换文件扩展名
func SwapExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// 解压zip包到指定目录，返回解出的文件列表
func Unzip(zipFile, dstDir string) (files []string, err error) {
	zr, err := zip.OpenReader(zipFile)
	if err != nil {
		return
	}
	defer zr.Close()
	var (
		path string
		in   io.ReadCloser
		out  *os.File
	)
	for _, f := range zr.File {
		path = filepath.Join(dstDir, f.Name)
		if !strings.HasPrefix(path, filepath.Clean(dstDir)+string(os.PathSeparator)) {
			err = ErrBadZipPath
			return
		}
		if f.FileInfo().IsDir() {
			if err = os.MkdirAll(path, os.ModePerm); err != nil {
				return
			}
			continue
		}
		if err = os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			return
		}
		if in, err = f.Open(); err != nil {
			return
		}
		if out, err = os.Create(path); err != nil {
			in.Close()
			return
		}
		_, err = io.Copy(out, in)
		in.Close()
		out.Close()
		if err != nil {
			return
		}
		files = append(files, path)
	}
	return
}

// 从zip包中取出shp文件，并检查cpg中标注的编码是否为UTF-8
func GetShpInZip(zipFile, dstDir string) (path string, utf8 bool, err error) {
	shpFiles, err := Unzip(zipFile, dstDir)
	if err != nil {
		return
	}
	for _, file := range shpFiles {
		if strings.HasSuffix(file, FILE_EXT_SHP) {
			path = file
			continue
		}
		if strings.HasSuffix(file, FILE_EXT_CPG) {
			enc, e := os.ReadFile(file)
			if e == nil && len(enc) > 0 {
				encStr := strings.ToUpper(strings.TrimSpace(string(enc)))
				utf8 = encStr == UTF_8 || encStr == UTF8
			}
		}
	}
	if path == "" {
		err = ErrNoShpInZip
	}
	return
}
