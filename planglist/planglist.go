// Package planglist is the registry of languages submissions may be
// written in.
package planglist

// ProgrammingLang describes one accepted submission language.
type ProgrammingLang struct {
	ID             string `json:"id"`
	FullName       string `json:"fullName"`
	Extension      string `json:"extension"`
	MonacoID       string `json:"monacoId"`
	HelloWorldCode string `json:"helloWorldCode"`
	Enabled        bool   `json:"enabled"`
}

const cppHello = `#include <iostream>
int main() { std::cout << "Hello, World!" << std::endl; }`

var languages = []ProgrammingLang{
	{ID: "python", FullName: "Python 3", Extension: "py", MonacoID: "python",
		HelloWorldCode: `print("Hello, World!")`, Enabled: true},
	{ID: "c", FullName: "C (GCC)", Extension: "c", MonacoID: "c",
		HelloWorldCode: `#include <stdio.h>
int main() { printf("Hello, World!\n"); }`, Enabled: true},
	{ID: "cpp11", FullName: "C++11 (GCC)", Extension: "cpp", MonacoID: "cpp", HelloWorldCode: cppHello, Enabled: true},
	{ID: "cpp14", FullName: "C++14 (GCC)", Extension: "cpp", MonacoID: "cpp", HelloWorldCode: cppHello, Enabled: true},
	{ID: "cpp17", FullName: "C++17 (GCC)", Extension: "cpp", MonacoID: "cpp", HelloWorldCode: cppHello, Enabled: true},
	{ID: "cpp20", FullName: "C++20 (GCC)", Extension: "cpp", MonacoID: "cpp", HelloWorldCode: cppHello, Enabled: true},
	{ID: "java", FullName: "Java SE 21", Extension: "java", MonacoID: "java",
		HelloWorldCode: `public class Main {
    public static void main(String[] args) {
        System.out.println("Hello, World!");
    }
}`, Enabled: true},
	{ID: "go", FullName: "Go", Extension: "go", MonacoID: "go",
		HelloWorldCode: `package main
import "fmt"
func main() {
    fmt.Println("Hello, World!")
}`, Enabled: false},
}

// List returns every known language, disabled ones included.
func List() []ProgrammingLang {
	res := make([]ProgrammingLang, len(languages))
	copy(res, languages)
	return res
}

// Get returns an enabled language by id.
func Get(id string) (ProgrammingLang, error) {
	for _, l := range languages {
		if l.ID == id && l.Enabled {
			return l, nil
		}
	}
	return ProgrammingLang{}, ErrInvalidProgLang(id)
}
